package game

import (
	"testing"
	"time"
)

func TestPurchasePrice(t *testing.T) {
	tests := []struct {
		current      int64
		recentTrades int
		empireSize   int
		want         int64
	}{
		{current: 100, recentTrades: 0, empireSize: 0, want: 130},
		{current: 100, recentTrades: 2, empireSize: 4, want: 130},
		{current: 100, recentTrades: 3, empireSize: 0, want: 143},
		{current: 100, recentTrades: 0, empireSize: 5, want: 149},
		{current: 100, recentTrades: 5, empireSize: 7, want: 162},
		{current: 50, recentTrades: 0, empireSize: 0, want: 65},
	}
	for _, tc := range tests {
		got := purchasePrice(tc.current, tc.recentTrades, tc.empireSize)
		if got != tc.want {
			t.Fatalf("purchasePrice(%d, %d, %d) = %d, want %d",
				tc.current, tc.recentTrades, tc.empireSize, got, tc.want)
		}
	}
}

func TestFirstPurchaseNumbers(t *testing.T) {
	buyerBalance := StartingBalance
	price := StartingPrice

	if buyerBalance-price != 200 {
		t.Fatalf("buyer balance after first purchase = %d, want 200", buyerBalance-price)
	}
	if got := purchasePrice(price, 0, 0); got != 130 {
		t.Fatalf("price after first purchase = %d, want 130", got)
	}
	if got := purchasePoints(price); got != 0.01 {
		t.Fatalf("points for first purchase = %v, want 0.01", got)
	}
	if got := saleCredit(price); got != price {
		t.Fatalf("sale credit = %d, want full price %d with zero fee", got, price)
	}
}

func TestPurchaseLegs(t *testing.T) {
	buyer, asset, owner := int64(1), int64(2), int64(3)

	legs := purchaseLegs(buyer, asset, nil, 100)
	if len(legs) != 1 {
		t.Fatalf("unowned asset should produce one leg, got %d", len(legs))
	}
	if legs[0].category != "purchase" || legs[0].amount != 100 {
		t.Fatalf("unexpected purchase leg: %+v", legs[0])
	}

	legs = purchaseLegs(buyer, asset, &owner, 100)
	if len(legs) != 2 {
		t.Fatalf("owned asset should produce two legs, got %d", len(legs))
	}
	sale := legs[1]
	if sale.category != "sale" || sale.amount != saleCredit(100) {
		t.Fatalf("unexpected sale leg: %+v", sale)
	}
	if sale.to == nil || *sale.to != owner {
		t.Fatalf("sale leg should credit the previous owner, got %+v", sale.to)
	}
}

func TestShieldCost(t *testing.T) {
	if got := shieldCost(100); got != 35 {
		t.Fatalf("shieldCost(100) = %d, want 35", got)
	}
	if got := shieldCost(130); got != 45 {
		t.Fatalf("shieldCost(130) = %d, want 45", got)
	}
}

func TestShieldActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	if !shieldActive(true, &later, now) {
		t.Fatalf("shield with future deadline should be active")
	}
	if shieldActive(true, &earlier, now) {
		t.Fatalf("shield past deadline should be inactive")
	}
	if shieldActive(false, &later, now) {
		t.Fatalf("inactive flag should win over future deadline")
	}
	if shieldActive(true, nil, now) {
		t.Fatalf("active flag without deadline should be inactive")
	}
}

func TestWorkRewardBounds(t *testing.T) {
	tests := []struct {
		price    int64
		base     int64
		min, max int64
	}{
		{price: 100, base: 5, min: 4, max: 6},
		{price: 300, base: 15, min: 12, max: 18},
		{price: 1000, base: 50, min: 40, max: 60},
		{price: 20, base: 5, min: 4, max: 6}, // floor of 5 applies
	}
	for _, tc := range tests {
		if got := workReward(tc.price, 1.0); got != tc.base {
			t.Fatalf("workReward(%d, 1.0) = %d, want %d", tc.price, got, tc.base)
		}
		low := workReward(tc.price, 0.8)
		high := workReward(tc.price, 1.2)
		if low < tc.min || high > tc.max {
			t.Fatalf("workReward(%d) endpoints %d..%d outside [%d, %d]",
				tc.price, low, high, tc.min, tc.max)
		}
	}
}

func TestUpgradeProgression(t *testing.T) {
	track := newUpgradeTrack()
	if track.Level != 1 || track.Multiplier != 1.0 || track.NextCost != 100 || track.TotalInvested != 0 {
		t.Fatalf("unexpected baseline track: %+v", track)
	}

	track, bump := advanceUpgrade(track)
	if track.Level != 2 || track.Multiplier != 1.20 || track.NextCost != 150 || track.TotalInvested != 100 {
		t.Fatalf("unexpected track after level 2: %+v", track)
	}
	if bump != 80 {
		t.Fatalf("price bump for level 2 = %d, want 80", bump)
	}

	track, bump = advanceUpgrade(track)
	if track.Level != 3 || track.Multiplier != 1.44 || track.NextCost != 225 || track.TotalInvested != 250 {
		t.Fatalf("unexpected track after level 3: %+v", track)
	}
	if bump != 120 {
		t.Fatalf("price bump for level 3 = %d, want 120", bump)
	}
}

func TestUpgradedIncome(t *testing.T) {
	if got := upgradedIncome(3, 1.0); got != 3 {
		t.Fatalf("upgradedIncome(3, 1.0) = %d, want 3", got)
	}
	if got := upgradedIncome(3, 1.44); got != 4 {
		t.Fatalf("upgradedIncome(3, 1.44) = %d, want 4", got)
	}
	if got := upgradedIncome(2, 1.2); got != 2 {
		t.Fatalf("upgradedIncome(2, 1.2) = %d, want 2", got)
	}
}
