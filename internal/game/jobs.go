package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GenerateHourlyIncome pays every owner the passive income their assets throw
// off: 1 to 3 coins per asset, scaled by the asset's upgrade multiplier. Each
// owner is handled in its own transaction so one failure never starves the
// rest of the batch.
func (s *Service) GenerateHourlyIncome(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT owner_id FROM game.accounts WHERE owner_id IS NOT NULL
	`)
	if err != nil {
		return 0, err
	}
	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		owners = append(owners, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	paid := 0
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return paid, err
		}
		if err := s.generateOwnerIncome(ctx, ownerID); err != nil {
			s.log.Error("income generation failed", "owner_id", ownerID, "error", err)
			continue
		}
		paid++
	}
	s.log.Info("hourly income generated", "owners", len(owners), "paid", paid)
	return paid, nil
}

func (s *Service) generateOwnerIncome(ctx context.Context, ownerID int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT a.id, COALESCE(u.income_multiplier, 1.0)
		FROM game.accounts a
		LEFT JOIN game.upgrades u ON u.asset_id = a.id
		WHERE a.owner_id = $1
		FOR UPDATE OF a
	`, ownerID)
	if err != nil {
		return err
	}
	type earner struct {
		id         int64
		multiplier float64
	}
	var assets []earner
	for rows.Next() {
		var e earner
		if err := rows.Scan(&e.id, &e.multiplier); err != nil {
			rows.Close()
			return err
		}
		assets = append(assets, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	day := s.now().UTC().Format("2006-01-02")
	var total int64
	for _, a := range assets {
		income := upgradedIncome(MinHourlyIncome+s.nextIntn(MaxHourlyIncome-MinHourlyIncome+1), a.multiplier)
		total += income
		if err := accumulateProfitTx(ctx, tx, a.id, day, income, 0); err != nil {
			return err
		}
	}

	if err := creditTx(ctx, tx, ownerID, total); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO game.income_log (account_id, amount, asset_count)
		VALUES ($1, $2, $3)
	`, ownerID, total, len(assets)); err != nil {
		return err
	}
	if err := accumulateProfitTx(ctx, tx, ownerID, day, 0, total); err != nil {
		return err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), nil, &ownerID, total, "income", "hourly asset income"); err != nil {
		return err
	}
	return commitOrConflict(ctx, tx)
}

func accumulateProfitTx(ctx context.Context, tx pgx.Tx, accountID int64, day string, generated, received int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.profit_log (account_id, day, profit_generated, profit_received)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, day) DO UPDATE
		SET profit_generated = game.profit_log.profit_generated + EXCLUDED.profit_generated,
		    profit_received = game.profit_log.profit_received + EXCLUDED.profit_received
	`, accountID, day, generated, received)
	return err
}

// RecomputeDynamicPrices runs the four-factor model over every account and
// persists only moves larger than the reprice threshold. Failures are logged
// per account and skipped.
func (s *Service) RecomputeDynamicPrices(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `SELECT id, price FROM game.accounts`)
	if err != nil {
		return 0, err
	}
	type priced struct {
		id    int64
		price int64
	}
	var accounts []priced
	for rows.Next() {
		var p priced
		if err := rows.Scan(&p.id, &p.price); err != nil {
			rows.Close()
			return 0, err
		}
		accounts = append(accounts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		proposed, err := s.DynamicPrice(ctx, a.id)
		if err != nil {
			s.log.Error("reprice failed", "account_id", a.id, "error", err)
			continue
		}
		if !repriceWorthwhile(a.price, proposed) {
			continue
		}
		if _, err := s.db.Exec(ctx, `
			UPDATE game.accounts SET price = $1 WHERE id = $2
		`, proposed, a.id); err != nil {
			s.log.Error("reprice write failed", "account_id", a.id, "error", err)
			continue
		}
		updated++
	}
	s.log.Info("dynamic prices recomputed", "accounts", len(accounts), "updated", updated)
	return updated, nil
}

// SimulateMarketFluctuation gives each account a 20% chance of a random price
// nudge of up to 5% either way, never below the floor.
func (s *Service) SimulateMarketFluctuation(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `SELECT id, price FROM game.accounts`)
	if err != nil {
		return 0, err
	}
	type priced struct {
		id    int64
		price int64
	}
	var accounts []priced
	for rows.Next() {
		var p priced
		if err := rows.Scan(&p.id, &p.price); err != nil {
			rows.Close()
			return 0, err
		}
		accounts = append(accounts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	nudged := 0
	for _, a := range accounts {
		if s.nextFloat() >= 0.2 {
			continue
		}
		factor := 0.95 + 0.1*s.nextFloat()
		proposed := int64(float64(a.price) * factor)
		if proposed < FloorPrice {
			proposed = FloorPrice
		}
		if proposed == a.price {
			continue
		}
		if _, err := s.db.Exec(ctx, `
			UPDATE game.accounts SET price = $1 WHERE id = $2
		`, proposed, a.id); err != nil {
			s.log.Error("fluctuation write failed", "account_id", a.id, "error", err)
			continue
		}
		nudged++
	}
	s.log.Info("market fluctuation applied", "accounts", len(accounts), "nudged", nudged)
	return nudged, nil
}

// CleanupRetention trims old history: income rows past 30 days, ledger rows
// past 90 days. Purchase legs are kept forever as provenance evidence.
func (s *Service) CleanupRetention(ctx context.Context) (int64, error) {
	now := s.now()
	var removed int64

	cmd, err := s.db.Exec(ctx, `
		DELETE FROM game.income_log WHERE logged_at < $1
	`, now.Add(-30*24*time.Hour))
	if err != nil {
		return removed, err
	}
	removed += cmd.RowsAffected()

	cmd, err = s.db.Exec(ctx, `
		DELETE FROM game.ledger_entries
		WHERE recorded_at < $1 AND category <> 'purchase'
	`, now.Add(-90*24*time.Hour))
	if err != nil {
		return removed, err
	}
	removed += cmd.RowsAffected()

	cmd, err = s.db.Exec(ctx, `
		DELETE FROM game.work_assignments WHERE completed AND ends_at < $1
	`, now.Add(-7*24*time.Hour))
	if err != nil {
		return removed, err
	}
	removed += cmd.RowsAffected()

	s.log.Info("retention cleanup done", "rows_removed", removed)
	return removed, nil
}

// SnapshotDailyStats upserts one aggregate row for the current day.
func (s *Service) SnapshotDailyStats(ctx context.Context) error {
	day := s.now().UTC().Format("2006-01-02")
	midnight := s.now().UTC().Truncate(24 * time.Hour)
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.daily_stats (day, total_accounts, total_owned, transactions, volume, avg_price)
		SELECT $1,
		       (SELECT COUNT(*) FROM game.accounts),
		       (SELECT COUNT(*) FROM game.accounts WHERE owner_id IS NOT NULL),
		       (SELECT COUNT(*) FROM game.ledger_entries WHERE recorded_at >= $2),
		       (SELECT COALESCE(SUM(amount), 0) FROM game.ledger_entries WHERE recorded_at >= $2),
		       (SELECT COALESCE(AVG(price), 0)::BIGINT FROM game.accounts)
		ON CONFLICT (day) DO UPDATE
		SET total_accounts = EXCLUDED.total_accounts,
		    total_owned = EXCLUDED.total_owned,
		    transactions = EXCLUDED.transactions,
		    volume = EXCLUDED.volume,
		    avg_price = EXCLUDED.avg_price
	`, day, midnight)
	if err != nil {
		return err
	}
	s.log.Info("daily stats snapshot", "day", day)
	return nil
}
