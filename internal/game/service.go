package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the ownership and economy engine. All state-mutating
// operations run as one serializable transaction against the store; lost
// ownership races surface as ErrConflict and are never retried internally.
type Service struct {
	db  *pgxpool.Pool
	log *slog.Logger
	now func() time.Time

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		now:  time.Now,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// CreateAccount registers a participant on first contact. Re-registering an
// existing id only refreshes the display name. A valid referral token
// belonging to another account captures the newcomer: the referrer becomes
// owner at creation, with a zero-price ownership record and one loyalty
// point.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	token, err := generateReferralToken()
	if err != nil {
		return Account{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.accounts (id, display_name, balance, points, price, referral_token)
		VALUES ($1, NULLIF($2, ''), $3, 0, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, in.ID, strings.TrimSpace(in.DisplayName), StartingBalance, StartingPrice, token)
	if err != nil {
		return Account{}, err
	}

	if cmd.RowsAffected() == 0 {
		if name := strings.TrimSpace(in.DisplayName); name != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE game.accounts SET display_name = $1 WHERE id = $2
			`, name, in.ID); err != nil {
				return Account{}, err
			}
		}
	} else if ref := strings.TrimSpace(in.ReferralToken); ref != "" {
		if err := s.captureReferralTx(ctx, tx, in.ID, ref); err != nil {
			return Account{}, err
		}
	}

	account, err := scanAccountTx(ctx, tx, in.ID, false)
	if err != nil {
		return Account{}, err
	}
	return account, tx.Commit(ctx)
}

func (s *Service) captureReferralTx(ctx context.Context, tx pgx.Tx, newID int64, token string) error {
	var referrerID int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM game.accounts WHERE referral_token = $1
	`, token).Scan(&referrerID)
	if err == pgx.ErrNoRows {
		return nil // unknown token, account stays free
	}
	if err != nil {
		return err
	}
	if referrerID == newID {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET owner_id = $1 WHERE id = $2
	`, referrerID, newID); err != nil {
		return err
	}
	if err := appendOwnershipTx(ctx, tx, newID, nil, &referrerID, 0); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE game.accounts SET points = points + $1 WHERE id = $2
	`, ReferralPoints, referrerID)
	if err != nil {
		return err
	}
	s.log.Info("referral capture", "asset_id", newID, "referrer_id", referrerID)
	return nil
}

func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.scanAccount(ctx, `SELECT `+accountColumns+` FROM game.accounts WHERE id = $1`, id)
}

func (s *Service) GetAccountByReferralToken(ctx context.Context, token string) (Account, error) {
	return s.scanAccount(ctx, `SELECT `+accountColumns+` FROM game.accounts WHERE referral_token = $1`, token)
}

// ListOwned returns the owner's assets, newest acquisition first.
func (s *Service) ListOwned(ctx context.Context, ownerID int64) ([]OwnedAsset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(display_name, ''), price, created_at
		FROM game.accounts
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]OwnedAsset, 0)
	for rows.Next() {
		var a OwnedAsset
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.Price, &a.AcquiredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SearchAccounts matches display names best-effort; duplicates are possible
// and left unresolved.
func (s *Service) SearchAccounts(ctx context.Context, pattern string, excludeID int64) ([]BrowseRow, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return []BrowseRow{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(display_name, ''), price, owner_id
		FROM game.accounts
		WHERE id <> $1 AND display_name ILIKE $2
		ORDER BY price ASC
		LIMIT 10
	`, excludeID, "%"+pattern+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBrowseRows(rows)
}

// BrowseAccounts lists purchasable accounts sorted by price or shuffled.
func (s *Service) BrowseAccounts(ctx context.Context, sort string, excludeID int64, limit int) ([]BrowseRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	order := "ORDER BY RANDOM()"
	switch sort {
	case "price_asc":
		order = "ORDER BY price ASC"
	case "price_desc":
		order = "ORDER BY price DESC"
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(display_name, ''), price, owner_id
		FROM game.accounts
		WHERE id <> $1
		`+order+`
		LIMIT $2
	`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBrowseRows(rows)
}

// OwnershipHistory returns the asset's provenance chain, oldest first.
func (s *Service) OwnershipHistory(ctx context.Context, assetID int64) ([]OwnershipRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, asset_id, old_owner_id, new_owner_id, price, recorded_at
		FROM game.ownership_history
		WHERE asset_id = $1
		ORDER BY recorded_at ASC, id ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]OwnershipRecord, 0)
	for rows.Next() {
		var r OwnershipRecord
		if err := rows.Scan(&r.ID, &r.AssetID, &r.OldOwnerID, &r.NewOwnerID, &r.Price, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Leaderboard ranks accounts by owned-asset count, balance, or total owned
// value.
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var query string
	switch category {
	case "balance":
		query = `
			SELECT id, COALESCE(display_name, ''), balance
			FROM game.accounts
			ORDER BY balance DESC
			LIMIT $1`
	case "value":
		query = `
			SELECT a.id, COALESCE(a.display_name, ''), COALESCE(SUM(p.price), 0)::BIGINT AS total_value
			FROM game.accounts a
			LEFT JOIN game.accounts p ON p.owner_id = a.id
			GROUP BY a.id
			ORDER BY total_value DESC
			LIMIT $1`
	case "assets":
		query = `
			SELECT a.id, COALESCE(a.display_name, ''), COUNT(p.id) AS asset_count
			FROM game.accounts a
			LEFT JOIN game.accounts p ON p.owner_id = a.id
			GROUP BY a.id
			ORDER BY asset_count DESC
			LIMIT $1`
	default:
		return nil, fmt.Errorf("unknown leaderboard category: %s", category)
	}

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	rank := 1
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.AccountID, &r.DisplayName, &r.Value); err != nil {
			return nil, err
		}
		r.Rank = rank
		rank++
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarketStats is a whole-market aggregate snapshot.
func (s *Service) MarketStats(ctx context.Context) (MarketStats, error) {
	var out MarketStats
	var avg *float64
	var max *int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), AVG(price), MAX(price) FROM game.accounts
	`).Scan(&out.TotalAccounts, &avg, &max)
	if err != nil {
		return out, err
	}
	if avg != nil {
		out.AvgPrice = int64(*avg)
	}
	if max != nil {
		out.MaxPrice = *max
	}
	midnight := s.now().UTC().Truncate(24 * time.Hour)
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM game.ledger_entries WHERE recorded_at >= $1
	`, midnight).Scan(&out.TransactionsToday)
	return out, err
}

// AccountProfit exposes the 7-day profit aggregate used by the pricing
// model.
func (s *Service) AccountProfit(ctx context.Context, accountID int64) (ProfitStats, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM game.accounts WHERE id = $1)
	`, accountID).Scan(&exists); err != nil {
		return ProfitStats{}, err
	}
	if !exists {
		return ProfitStats{}, ErrNotFound
	}
	return s.profitStats(ctx, accountID, s.now())
}

// Transfer moves coins between two accounts. Sufficiency is checked under
// lock before the debit; the store never clamps.
func (s *Service) Transfer(ctx context.Context, fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTrade
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var balance int64
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM game.accounts WHERE id = $1 FOR UPDATE
	`, fromID).Scan(&balance); err != nil {
		return mapNoRows(err)
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET balance = balance - $1 WHERE id = $2
	`, amount, fromID); err != nil {
		return err
	}
	if err := creditTx(ctx, tx, toID, amount); err != nil {
		return err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), &fromID, &toID, amount, "transfer", "player transfer"); err != nil {
		return err
	}
	return commitOrConflict(ctx, tx)
}

// Purchase transfers ownership of an asset to the buyer at the asset's
// current price. The ownership mutation is a compare-and-set keyed on the
// owner observed during validation; a changed owner surfaces as ErrConflict
// for the caller to decide about retrying.
func (s *Service) Purchase(ctx context.Context, buyerID, assetID int64) (PurchaseResult, error) {
	var out PurchaseResult
	if buyerID == assetID {
		return out, ErrSelfTrade
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	asset, err := scanAccountTx(ctx, tx, assetID, true)
	if err != nil {
		return out, err
	}
	if asset.OwnerID != nil && *asset.OwnerID == buyerID {
		return out, ErrAlreadyOwned
	}
	now := s.now()
	if shieldActive(asset.ShieldActive, asset.ShieldUntil, now) {
		return out, ErrShielded
	}
	if asset.ShieldActive || asset.ShieldUntil != nil {
		if err := clearShieldTx(ctx, tx, assetID); err != nil {
			return out, err
		}
	}

	var buyerBalance int64
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM game.accounts WHERE id = $1 FOR UPDATE
	`, buyerID).Scan(&buyerBalance); err != nil {
		return out, mapNoRows(err)
	}
	price := asset.Price
	if buyerBalance < price {
		return out, ErrInsufficientFunds
	}

	var recentTrades, empireSize int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM game.ownership_history
		WHERE asset_id = $1 AND recorded_at > $2
	`, assetID, now.Add(-30*24*time.Hour)).Scan(&recentTrades); err != nil {
		return out, err
	}
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM game.accounts WHERE owner_id = $1
	`, assetID).Scan(&empireSize); err != nil {
		return out, err
	}
	newPrice := purchasePrice(price, recentTrades, empireSize)

	var expected any
	if asset.OwnerID != nil {
		expected = *asset.OwnerID
	}
	cmd, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET owner_id = $1, price = $2
		WHERE id = $3 AND owner_id IS NOT DISTINCT FROM $4
	`, buyerID, newPrice, assetID, expected)
	if err != nil {
		return out, convertTxErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return out, ErrConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET balance = balance - $1 WHERE id = $2
	`, price, buyerID); err != nil {
		return out, err
	}
	if asset.OwnerID != nil {
		if err := creditTx(ctx, tx, *asset.OwnerID, saleCredit(price)); err != nil {
			return out, err
		}
	}
	txGroup := uuid.NewString()
	for _, leg := range purchaseLegs(buyerID, assetID, asset.OwnerID, price) {
		if err := appendLedgerTx(ctx, tx, txGroup, leg.from, leg.to, leg.amount, leg.category, leg.description); err != nil {
			return out, err
		}
	}
	if err := appendOwnershipTx(ctx, tx, assetID, asset.OwnerID, &buyerID, price); err != nil {
		return out, err
	}
	points := purchasePoints(price)
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET points = points + $1 WHERE id = $2
	`, points, buyerID); err != nil {
		return out, err
	}

	if err := commitOrConflict(ctx, tx); err != nil {
		return out, err
	}
	s.log.Info("purchase committed",
		"buyer_id", buyerID, "asset_id", assetID, "price", price, "new_price", newPrice)
	return PurchaseResult{
		AssetID:      assetID,
		PricePaid:    price,
		NewPrice:     newPrice,
		PointsEarned: points,
		BuyerBalance: buyerBalance - price,
	}, nil
}

// SelfLiberate lets an owned asset buy itself free at its own current
// price. The price is paid to the system: no credit leg exists.
func (s *Service) SelfLiberate(ctx context.Context, assetID int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	asset, err := scanAccountTx(ctx, tx, assetID, true)
	if err != nil {
		return err
	}
	if asset.OwnerID == nil {
		return ErrNotOwned
	}
	now := s.now()
	if shieldActive(asset.ShieldActive, asset.ShieldUntil, now) {
		return ErrShielded
	}
	if asset.ShieldActive || asset.ShieldUntil != nil {
		if err := clearShieldTx(ctx, tx, assetID); err != nil {
			return err
		}
	}
	if asset.Balance < asset.Price {
		return ErrInsufficientFunds
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE game.accounts
		SET owner_id = NULL, balance = balance - $1
		WHERE id = $2 AND owner_id IS NOT DISTINCT FROM $3
	`, asset.Price, assetID, *asset.OwnerID)
	if err != nil {
		return convertTxErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}

	if err := appendOwnershipTx(ctx, tx, assetID, asset.OwnerID, nil, asset.Price); err != nil {
		return err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), &assetID, nil, asset.Price, "self_liberation", "bought own freedom"); err != nil {
		return err
	}
	if err := commitOrConflict(ctx, tx); err != nil {
		return err
	}
	s.log.Info("self-liberation", "asset_id", assetID, "price", asset.Price)
	return nil
}

// ActivateShield buys 24 hours of protection for an owned asset at 35% of
// its current price. The shield blocks both purchase and self-liberation
// until it lapses; expiry is only ever observed lazily.
func (s *Service) ActivateShield(ctx context.Context, ownerID, assetID int64) (time.Time, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx)

	asset, err := scanAccountTx(ctx, tx, assetID, true)
	if err != nil {
		return time.Time{}, err
	}
	if asset.OwnerID == nil || *asset.OwnerID != ownerID {
		return time.Time{}, ErrNotOwner
	}
	now := s.now()
	if shieldActive(asset.ShieldActive, asset.ShieldUntil, now) {
		return time.Time{}, ErrAlreadyShielded
	}

	cost := shieldCost(asset.Price)
	var ownerBalance int64
	if err := tx.QueryRow(ctx, `
		SELECT balance FROM game.accounts WHERE id = $1 FOR UPDATE
	`, ownerID).Scan(&ownerBalance); err != nil {
		return time.Time{}, mapNoRows(err)
	}
	if ownerBalance < cost {
		return time.Time{}, ErrInsufficientFunds
	}

	until := now.Add(ShieldDuration)
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET shield_active = TRUE, shield_until = $1 WHERE id = $2
	`, until, assetID); err != nil {
		return time.Time{}, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.accounts SET balance = balance - $1 WHERE id = $2
	`, cost, ownerID); err != nil {
		return time.Time{}, err
	}
	if err := appendLedgerTx(ctx, tx, uuid.NewString(), &ownerID, &assetID, cost, "shield", "shield activation"); err != nil {
		return time.Time{}, err
	}
	if err := commitOrConflict(ctx, tx); err != nil {
		return time.Time{}, err
	}
	s.log.Info("shield activated", "owner_id", ownerID, "asset_id", assetID, "cost", cost, "until", until)
	return until, nil
}

const accountColumns = `id, COALESCE(display_name, ''), balance, points, price, owner_id,
	shield_active, shield_until, created_at, referral_token`

func (s *Service) scanAccount(ctx context.Context, query string, args ...any) (Account, error) {
	var a Account
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.DisplayName, &a.Balance, &a.Points, &a.Price, &a.OwnerID,
		&a.ShieldActive, &a.ShieldUntil, &a.CreatedAt, &a.ReferralToken)
	if err != nil {
		return a, mapNoRows(err)
	}
	return a, nil
}

func scanAccountTx(ctx context.Context, tx pgx.Tx, id int64, forUpdate bool) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM game.accounts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var a Account
	err := tx.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.DisplayName, &a.Balance, &a.Points, &a.Price, &a.OwnerID,
		&a.ShieldActive, &a.ShieldUntil, &a.CreatedAt, &a.ReferralToken)
	if err != nil {
		return a, mapNoRows(err)
	}
	return a, nil
}

// creditTx applies a signed balance delta and fails with ErrNotFound for an
// unknown account. Ledger rows describing the delta are appended in the
// same transaction by the caller.
func creditTx(ctx context.Context, tx pgx.Tx, id, amount int64) error {
	cmd, err := tx.Exec(ctx, `
		UPDATE game.accounts SET balance = balance + $1 WHERE id = $2
	`, amount, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// appendLedgerTx writes one transaction-log row. txGroup is minted once per
// engine operation so every row of that operation shares it.
func appendLedgerTx(ctx context.Context, tx pgx.Tx, txGroup string, fromID, toID *int64, amount int64, category, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.ledger_entries (tx_group_id, from_id, to_id, amount, category, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txGroup, fromID, toID, amount, category, description)
	return err
}

func appendOwnershipTx(ctx context.Context, tx pgx.Tx, assetID int64, oldOwner, newOwner *int64, price int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.ownership_history (asset_id, old_owner_id, new_owner_id, price)
		VALUES ($1, $2, $3, $4)
	`, assetID, oldOwner, newOwner, price)
	return err
}

func clearShieldTx(ctx context.Context, tx pgx.Tx, assetID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE game.accounts SET shield_active = FALSE, shield_until = NULL WHERE id = $1
	`, assetID)
	return err
}

func collectBrowseRows(rows pgx.Rows) ([]BrowseRow, error) {
	out := make([]BrowseRow, 0)
	for rows.Next() {
		var r BrowseRow
		if err := rows.Scan(&r.ID, &r.DisplayName, &r.Price, &r.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func commitOrConflict(ctx context.Context, tx pgx.Tx) error {
	return convertTxErr(tx.Commit(ctx))
}

// convertTxErr maps serialization failures and deadlocks to ErrConflict so
// callers see one recoverable error kind for every lost race.
func convertTxErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return ErrConflict
	}
	return err
}

func mapNoRows(err error) error {
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func generateReferralToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return "trap_" + strings.ReplaceAll(id.String(), "-", "")[:12], nil
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) nextIntn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}
