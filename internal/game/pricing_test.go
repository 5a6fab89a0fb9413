package game

import (
	"math"
	"testing"
)

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

func TestLiquidityFactorFrequency(t *testing.T) {
	tests := []struct {
		trades int
		want   float64
	}{
		{trades: 0, want: 1.0},
		{trades: 1, want: 1.05},
		{trades: 2, want: 1.05},
		{trades: 3, want: 1.15},
		{trades: 5, want: 1.15},
		{trades: 6, want: 1.25},
	}
	for _, tc := range tests {
		got := liquidityFactor(TradeStats{Trades: tc.trades}, 100)
		approx(t, got, tc.want, "liquidityFactor")
	}
}

func TestLiquidityFactorTrend(t *testing.T) {
	// Above the 30-day average but not a new high.
	got := liquidityFactor(TradeStats{Trades: 1, AvgPrice: 90, MaxPrice: 120}, 100)
	approx(t, got, 1.05*1.1, "above-average trend")

	// A new high beats the above-average branch.
	got = liquidityFactor(TradeStats{Trades: 1, AvgPrice: 90, MaxPrice: 95}, 100)
	approx(t, got, 1.05*1.2, "new-high trend")

	// At or below the average is neutral.
	got = liquidityFactor(TradeStats{Trades: 1, AvgPrice: 100, MaxPrice: 120}, 100)
	approx(t, got, 1.05, "flat trend")
}

func TestStabilityFactor(t *testing.T) {
	// Too few records is neutral.
	got := stabilityFactor(IncomeStats{Amounts: []int64{10, 10}})
	approx(t, got, 1.0, "short history")

	// Perfectly steady income scores 100.
	got = stabilityFactor(IncomeStats{Amounts: []int64{10, 10, 10, 10}, DistinctDays: 2})
	approx(t, got, 1.3, "steady income")

	// Steady and spread over most of the week earns the consistency bonus.
	got = stabilityFactor(IncomeStats{Amounts: []int64{10, 10, 10, 10}, DistinctDays: 5})
	approx(t, got, 1.3*1.1, "steady and consistent")

	// Wildly varying income is neutral.
	got = stabilityFactor(IncomeStats{Amounts: []int64{1, 40, 2, 35}, DistinctDays: 1})
	approx(t, got, 1.0, "erratic income")
}

func TestEmpireFactor(t *testing.T) {
	approx(t, empireFactor(EmpireStats{}), 0.9, "no assets")

	got := empireFactor(EmpireStats{Assets: 2, AvgAssetPrice: 100})
	approx(t, got, 1.1, "small cheap empire")

	got = empireFactor(EmpireStats{Assets: 5, AvgAssetPrice: 300, AvgUpgradeInvested: 200})
	approx(t, got, 1.2*1.2*1.2, "mid empire")

	got = empireFactor(EmpireStats{Assets: 20, AvgAssetPrice: 500, AvgUpgradeInvested: 1000})
	approx(t, got, 1.4*1.3*1.4, "large rich empire")
}

func TestEmpireFactorGrowth(t *testing.T) {
	// Newest three acquisitions cost well over the prior three.
	es := EmpireStats{
		Assets:                  3,
		AvgAssetPrice:           100,
		RecentAcquisitionPrices: []int64{300, 280, 260, 100, 100, 100},
	}
	approx(t, empireFactor(es), 1.1*1.15, "growing empire")

	// Fewer than five acquisitions never earns the growth bonus.
	es.RecentAcquisitionPrices = es.RecentAcquisitionPrices[:4]
	approx(t, empireFactor(es), 1.1, "too few acquisitions")
}

func TestProfitFactor(t *testing.T) {
	// Fresh accounts: no generation, zero net, no active days.
	approx(t, profitFactor(ProfitStats{}), 1.1, "fresh account")

	got := profitFactor(ProfitStats{AvgGenerated: 60, NetProfit: 150, DaysActive: 7})
	approx(t, got, 1.3*1.2*1.2, "strong earner")

	got = profitFactor(ProfitStats{AvgGenerated: 5, NetProfit: -50, DaysActive: 3})
	approx(t, got, 1.0*0.9*1.1, "money loser")
}

func TestCombineFactorsClamp(t *testing.T) {
	approx(t, combineFactors(0.9, 0.9, 0.9, 0.5), 0.5, "lower clamp")
	approx(t, combineFactors(1.4, 1.43, 2.548, 1.872), 4.0, "upper clamp")
	approx(t, combineFactors(1.1, 1.2, 1.0, 1.0), 1.1*1.2, "in range")
}

func TestDynamicPriceFloor(t *testing.T) {
	if got := dynamicPrice(60, 0.5); got != FloorPrice {
		t.Fatalf("dynamicPrice(60, 0.5) = %d, want floor %d", got, FloorPrice)
	}
	if got := dynamicPrice(100, 1.5); got != 150 {
		t.Fatalf("dynamicPrice(100, 1.5) = %d, want 150", got)
	}
}

func TestRepriceWorthwhile(t *testing.T) {
	if repriceWorthwhile(100, 105) {
		t.Fatalf("a 5%% move should not trigger a reprice")
	}
	if !repriceWorthwhile(100, 106) {
		t.Fatalf("a 6%% move up should trigger a reprice")
	}
	if !repriceWorthwhile(100, 94) {
		t.Fatalf("a 6%% move down should trigger a reprice")
	}
	if repriceWorthwhile(100, 100) {
		t.Fatalf("no move should never trigger a reprice")
	}
}
