package game

import (
	"context"
	"fmt"
	"math"
	"time"
)

// The dynamic price of an account is its current price times the product of
// four independent multipliers: trading liquidity, income stability, empire
// composition, and profitability. The product is clamped to [0.5, 4.0] and
// the result never drops below FloorPrice.

// TradeStats aggregates an asset's ownership-history rows from the last 30
// days.
type TradeStats struct {
	Trades   int
	AvgPrice float64
	MaxPrice float64
}

// IncomeStats aggregates an account's income-log rows from the last 7 days.
type IncomeStats struct {
	Amounts      []int64
	DistinctDays int
}

// EmpireStats describes the composition of an account's owned assets.
// RecentAcquisitionPrices holds the prices of up to 10 most recent
// acquisitions, newest first.
type EmpireStats struct {
	Assets                  int
	AvgAssetPrice           float64
	AvgUpgradeInvested      float64
	RecentAcquisitionPrices []int64
}

// ProfitStats aggregates an account's profit-log rows from the last 7 days.
type ProfitStats struct {
	TotalGenerated int64 `json:"total_generated"`
	TotalReceived  int64 `json:"total_received"`
	AvgGenerated   float64
	NetProfit      int64 `json:"net_profit"`
	DaysActive     int   `json:"days_active"`
}

// liquidityFactor rewards assets that change hands often and whose price is
// trending up. The new-high check takes precedence over the above-average
// check when both hold.
func liquidityFactor(ts TradeStats, currentPrice int64) float64 {
	var frequency float64
	switch {
	case ts.Trades == 0:
		frequency = 1.0
	case ts.Trades <= 2:
		frequency = 1.05
	case ts.Trades <= 5:
		frequency = 1.15
	default:
		frequency = 1.25
	}

	trend := 1.0
	price := float64(currentPrice)
	switch {
	case ts.MaxPrice > 0 && price > ts.MaxPrice:
		trend = 1.2
	case ts.AvgPrice > 0 && price > ts.AvgPrice:
		trend = 1.1
	}
	return frequency * trend
}

// stabilityFactor rewards steady income. With fewer than three income events
// in the window there is not enough data and the factor is neutral.
func stabilityFactor(in IncomeStats) float64 {
	if len(in.Amounts) < 3 {
		return 1.0
	}
	var sum float64
	for _, a := range in.Amounts {
		sum += float64(a)
	}
	mean := sum / float64(len(in.Amounts))
	var variance float64
	for _, a := range in.Amounts {
		d := float64(a) - mean
		variance += d * d
	}
	variance /= float64(len(in.Amounts))

	score := 100 - variance
	if score < 0 {
		score = 0
	}

	var factor float64
	switch {
	case score >= 80:
		factor = 1.3
	case score >= 60:
		factor = 1.2
	case score >= 40:
		factor = 1.1
	default:
		factor = 1.0
	}
	if in.DistinctDays >= 5 {
		factor *= 1.1
	}
	return factor
}

// empireFactor values an account by what it owns: asset count, average asset
// price, average per-asset upgrade investment, and whether recent
// acquisitions are trending more expensive.
func empireFactor(es EmpireStats) float64 {
	if es.Assets == 0 {
		return 0.9
	}

	var count float64
	switch {
	case es.Assets >= 20:
		count = 1.4
	case es.Assets >= 10:
		count = 1.3
	case es.Assets >= 5:
		count = 1.2
	default:
		count = 1.1
	}

	var quality float64
	switch {
	case es.AvgAssetPrice >= 500:
		quality = 1.3
	case es.AvgAssetPrice >= 300:
		quality = 1.2
	case es.AvgAssetPrice >= 150:
		quality = 1.1
	default:
		quality = 1.0
	}

	var invested float64
	switch {
	case es.AvgUpgradeInvested >= 1000:
		invested = 1.4
	case es.AvgUpgradeInvested >= 500:
		invested = 1.3
	case es.AvgUpgradeInvested >= 200:
		invested = 1.2
	case es.AvgUpgradeInvested >= 50:
		invested = 1.1
	default:
		invested = 1.0
	}

	growth := 1.0
	if len(es.RecentAcquisitionPrices) >= 5 {
		recentAvg := avgOf(es.RecentAcquisitionPrices[:3])
		olderAvg := recentAvg
		if len(es.RecentAcquisitionPrices) >= 6 {
			olderAvg = avgOf(es.RecentAcquisitionPrices[3:6])
		}
		if recentAvg > olderAvg*1.2 {
			growth = 1.15
		}
	}

	return count * quality * invested * growth
}

// profitFactor values an account by the income it throws off: how much it
// generates for its owner per day, its 7-day net (received minus generated),
// and how many days of the window it was active.
func profitFactor(ps ProfitStats) float64 {
	var generation float64
	switch {
	case ps.AvgGenerated >= 100:
		generation = 1.4
	case ps.AvgGenerated >= 50:
		generation = 1.3
	case ps.AvgGenerated >= 20:
		generation = 1.2
	case ps.AvgGenerated >= 10:
		generation = 1.1
	default:
		generation = 1.0
	}

	var net float64
	switch {
	case ps.NetProfit >= 200:
		net = 1.3
	case ps.NetProfit >= 100:
		net = 1.2
	case ps.NetProfit >= 50:
		net = 1.15
	case ps.NetProfit >= 0:
		net = 1.1
	default:
		net = 0.9
	}

	var consistency float64
	switch {
	case ps.DaysActive >= 6:
		consistency = 1.2
	case ps.DaysActive >= 4:
		consistency = 1.15
	case ps.DaysActive >= 2:
		consistency = 1.1
	default:
		consistency = 1.0
	}

	return generation * net * consistency
}

func combineFactors(liquidity, stability, empire, profit float64) float64 {
	total := liquidity * stability * empire * profit
	if total < 0.5 {
		return 0.5
	}
	if total > 4.0 {
		return 4.0
	}
	return total
}

func dynamicPrice(current int64, multiplier float64) int64 {
	price := int64(math.Round(float64(current) * multiplier))
	if price < FloorPrice {
		return FloorPrice
	}
	return price
}

// repriceWorthwhile reports whether a recompute moves the price far enough
// from the current one to be worth writing (more than 5% either way).
func repriceWorthwhile(current, proposed int64) bool {
	if current <= 0 {
		return proposed > 0
	}
	delta := proposed - current
	if delta < 0 {
		delta = -delta
	}
	return float64(delta)/float64(current) > RepriceThreshold
}

func avgOf(vs []int64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum int64
	for _, v := range vs {
		sum += v
	}
	return float64(sum) / float64(len(vs))
}

// DynamicPrice runs the full four-factor recompute for one account against
// stored history. Read-only; callers decide whether to persist the result.
func (s *Service) DynamicPrice(ctx context.Context, accountID int64) (int64, error) {
	var current int64
	err := s.db.QueryRow(ctx, `
		SELECT price FROM game.accounts WHERE id = $1
	`, accountID).Scan(&current)
	if err != nil {
		return 0, mapNoRows(err)
	}
	now := s.now()

	ts, err := s.tradeStats(ctx, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("trade stats: %w", err)
	}
	in, err := s.incomeStats(ctx, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("income stats: %w", err)
	}
	es, err := s.empireStats(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("empire stats: %w", err)
	}
	ps, err := s.profitStats(ctx, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("profit stats: %w", err)
	}

	mult := combineFactors(
		liquidityFactor(ts, current),
		stabilityFactor(in),
		empireFactor(es),
		profitFactor(ps),
	)
	return dynamicPrice(current, mult), nil
}

func (s *Service) tradeStats(ctx context.Context, assetID int64, now time.Time) (TradeStats, error) {
	var ts TradeStats
	var avg, max *float64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), AVG(price), MAX(price)
		FROM game.ownership_history
		WHERE asset_id = $1 AND recorded_at > $2
	`, assetID, now.Add(-30*24*time.Hour)).Scan(&ts.Trades, &avg, &max)
	if err != nil {
		return ts, err
	}
	if avg != nil {
		ts.AvgPrice = *avg
	}
	if max != nil {
		ts.MaxPrice = *max
	}
	return ts, nil
}

func (s *Service) incomeStats(ctx context.Context, accountID int64, now time.Time) (IncomeStats, error) {
	var in IncomeStats
	rows, err := s.db.Query(ctx, `
		SELECT amount, logged_at
		FROM game.income_log
		WHERE account_id = $1 AND logged_at > $2
		ORDER BY logged_at DESC
	`, accountID, now.Add(-7*24*time.Hour))
	if err != nil {
		return in, err
	}
	defer rows.Close()

	days := make(map[string]struct{})
	for rows.Next() {
		var amount int64
		var at time.Time
		if err := rows.Scan(&amount, &at); err != nil {
			return in, err
		}
		in.Amounts = append(in.Amounts, amount)
		days[at.UTC().Format("2006-01-02")] = struct{}{}
	}
	in.DistinctDays = len(days)
	return in, rows.Err()
}

func (s *Service) empireStats(ctx context.Context, ownerID int64) (EmpireStats, error) {
	var es EmpireStats
	var avgPrice, avgInvested *float64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), AVG(a.price), AVG(COALESCE(u.total_invested, 0))
		FROM game.accounts a
		LEFT JOIN game.upgrades u ON u.asset_id = a.id
		WHERE a.owner_id = $1
	`, ownerID).Scan(&es.Assets, &avgPrice, &avgInvested)
	if err != nil {
		return es, err
	}
	if avgPrice != nil {
		es.AvgAssetPrice = *avgPrice
	}
	if avgInvested != nil {
		es.AvgUpgradeInvested = *avgInvested
	}

	rows, err := s.db.Query(ctx, `
		SELECT price
		FROM game.ownership_history
		WHERE new_owner_id = $1
		ORDER BY recorded_at DESC
		LIMIT 10
	`, ownerID)
	if err != nil {
		return es, err
	}
	defer rows.Close()
	for rows.Next() {
		var price int64
		if err := rows.Scan(&price); err != nil {
			return es, err
		}
		es.RecentAcquisitionPrices = append(es.RecentAcquisitionPrices, price)
	}
	return es, rows.Err()
}

func (s *Service) profitStats(ctx context.Context, accountID int64, now time.Time) (ProfitStats, error) {
	var ps ProfitStats
	var avgGenerated *float64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(profit_generated), 0)::BIGINT,
		       COALESCE(SUM(profit_received), 0)::BIGINT,
		       AVG(profit_generated),
		       COUNT(*)
		FROM game.profit_log
		WHERE account_id = $1 AND day > $2
	`, accountID, now.Add(-7*24*time.Hour).UTC().Format("2006-01-02")).
		Scan(&ps.TotalGenerated, &ps.TotalReceived, &avgGenerated, &ps.DaysActive)
	if err != nil {
		return ps, err
	}
	if avgGenerated != nil {
		ps.AvgGenerated = *avgGenerated
	}
	ps.NetProfit = ps.TotalReceived - ps.TotalGenerated
	return ps, nil
}
