package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpgradeInfo returns the asset's investment track, materializing the level-1
// baseline for assets that were never upgraded.
func (s *Service) UpgradeInfo(ctx context.Context, assetID int64) (UpgradeTrack, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM game.accounts WHERE id = $1)
	`, assetID).Scan(&exists); err != nil {
		return UpgradeTrack{}, err
	}
	if !exists {
		return UpgradeTrack{}, ErrNotFound
	}

	var t UpgradeTrack
	err := s.db.QueryRow(ctx, `
		SELECT level, income_multiplier, next_cost, total_invested
		FROM game.upgrades WHERE asset_id = $1
	`, assetID).Scan(&t.Level, &t.Multiplier, &t.NextCost, &t.TotalInvested)
	if err == pgx.ErrNoRows {
		return newUpgradeTrack(), nil
	}
	if err != nil {
		return UpgradeTrack{}, err
	}
	return t, nil
}

// Upgrade advances an owned asset one level. The owner pays the current step
// cost, the asset's income multiplier compounds by 20%, the next step costs
// 50% more, and 80% of the cost lands on the asset's resale price. Levels
// survive ownership changes.
func (s *Service) Upgrade(ctx context.Context, ownerID, assetID int64) (UpgradeResult, error) {
	var out UpgradeResult

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	asset, err := scanAccountTx(ctx, tx, assetID, true)
	if err != nil {
		return out, err
	}
	if asset.OwnerID == nil || *asset.OwnerID != ownerID {
		return out, ErrNotOwner
	}

	track := newUpgradeTrack()
	err = tx.QueryRow(ctx, `
		SELECT level, income_multiplier, next_cost, total_invested
		FROM game.upgrades WHERE asset_id = $1 FOR UPDATE
	`, assetID).Scan(&track.Level, &track.Multiplier, &track.NextCost, &track.TotalInvested)
	if err != nil && err != pgx.ErrNoRows {
		return out, err
	}

	cost := track.NextCost
	var ownerBalance int64
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM game.accounts WHERE id = $1 FOR UPDATE
	`, ownerID).Scan(&ownerBalance); err != nil {
		return out, mapNoRows(err)
	}
	if ownerBalance < cost {
		return out, ErrInsufficientFunds
	}

	next, priceBump := advanceUpgrade(track)
	if _, err := tx.Exec(ctx, `
		INSERT INTO game.upgrades (asset_id, level, income_multiplier, next_cost, total_invested)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_id) DO UPDATE
		SET level = EXCLUDED.level,
		    income_multiplier = EXCLUDED.income_multiplier,
		    next_cost = EXCLUDED.next_cost,
		    total_invested = EXCLUDED.total_invested,
		    upgraded_at = NOW()
	`, assetID, next.Level, next.Multiplier, next.NextCost, next.TotalInvested); err != nil {
		return out, err
	}

	newPrice := asset.Price + priceBump
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET price = $1 WHERE id = $2
	`, newPrice, assetID); err != nil {
		return out, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET balance = balance - $1 WHERE id = $2
	`, cost, ownerID); err != nil {
		return out, err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), &ownerID, &assetID, cost, "upgrade", "asset upgrade"); err != nil {
		return out, err
	}

	if err := commitOrConflict(ctx, tx); err != nil {
		return out, err
	}
	s.log.Info("asset upgraded",
		"owner_id", ownerID, "asset_id", assetID, "level", next.Level, "cost", cost, "new_price", newPrice)
	return UpgradeResult{
		AssetID:      assetID,
		CostPaid:     cost,
		Track:        next,
		NewPrice:     newPrice,
		OwnerBalance: ownerBalance - cost,
	}, nil
}
