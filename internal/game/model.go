package game

import (
	"errors"
	"math"
	"time"
)

const (
	StartingBalance = int64(300)
	StartingPrice   = int64(100)
	FloorPrice      = int64(50)

	// Every purchase bumps the asset's price by 30% before surcharges.
	PurchaseBumpMultiplier = 1.3

	// Fee hook for the sale leg. Currently free; the credit leg is
	// multiplied by (100 - TransferFeePercent) / 100.
	TransferFeePercent = int64(0)

	ShieldCostPercent = 0.35
	ShieldDuration    = 24 * time.Hour

	WorkDuration   = time.Hour
	MinWorkReward  = int64(5)
	WorkPriceShare = int64(20) // reward base = price / WorkPriceShare

	MinHourlyIncome = 1
	MaxHourlyIncome = 3

	UpgradeBaseCost       = int64(100)
	UpgradeCostGrowth     = 1.5
	UpgradeMultiplierStep = 1.2
	UpgradePriceShare     = 0.8 // portion of upgrade cost added to asset price

	// Loyalty points: 0.01% of every purchase price, 1 full point per referral.
	PurchasePointsRate = 0.0001
	ReferralPoints     = 1.0

	// Full recomputes only land when they would move the price by more
	// than this fraction, to avoid churn.
	RepriceThreshold = 0.05
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrSelfTrade         = errors.New("cannot trade with yourself")
	ErrAlreadyOwned      = errors.New("asset already owned by buyer")
	ErrNotOwned          = errors.New("asset has no owner")
	ErrNotOwner          = errors.New("caller does not own this asset")
	ErrShielded          = errors.New("asset is protected by an active shield")
	ErrAlreadyShielded   = errors.New("asset already has an active shield")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyWorking    = errors.New("assets are already working")
	ErrNoAssets          = errors.New("no owned assets")
	ErrNothingReady      = errors.New("no work assignments ready to collect")
	ErrConflict          = errors.New("lost a concurrent ownership race")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// purchasePrice computes the asset's post-purchase price: the flat 30% bump,
// then a short-horizon surcharge for actively traded assets (three or more
// trades in the last 30 days adds 10%) and assets running an empire of their
// own (five or more owned assets adds 15%). Surcharges are additive on a 1.0
// baseline before multiplying.
func purchasePrice(current int64, recentTrades, empireSize int) int64 {
	base := int64(float64(current) * PurchaseBumpMultiplier)
	surcharge := 1.0
	if recentTrades >= 3 {
		surcharge += 0.10
	}
	if empireSize >= 5 {
		surcharge += 0.15
	}
	return int64(float64(base) * surcharge)
}

func purchasePoints(price int64) float64 {
	return float64(price) * PurchasePointsRate
}

func saleCredit(price int64) int64 {
	return price * (100 - TransferFeePercent) / 100
}

func shieldCost(price int64) int64 {
	return int64(float64(price) * ShieldCostPercent)
}

// shieldActive reports whether a shield blocks transfers at the given
// instant. No timer fires on expiry; callers clear expired shields lazily
// when this returns false for a row that still has one set.
func shieldActive(active bool, until *time.Time, now time.Time) bool {
	return active && until != nil && now.Before(*until)
}

// workReward computes one assignment's expected reward: 5% of the asset's
// price, floored at 5 coins, scaled by a uniform factor in [0.8, 1.2].
func workReward(price int64, factor float64) int64 {
	base := price / WorkPriceShare
	if base < MinWorkReward {
		base = MinWorkReward
	}
	return int64(float64(base) * factor)
}

// UpgradeTrack is one asset's investment record. All numeric fields only
// ever increase.
type UpgradeTrack struct {
	Level         int32   `json:"level"`
	Multiplier    float64 `json:"income_multiplier"`
	NextCost      int64   `json:"next_cost"`
	TotalInvested int64   `json:"total_invested"`
}

func newUpgradeTrack() UpgradeTrack {
	return UpgradeTrack{Level: 1, Multiplier: 1.0, NextCost: UpgradeBaseCost}
}

// advanceUpgrade applies one paid upgrade step and returns the new track
// plus the resale-price increase (80% of the cost paid).
func advanceUpgrade(t UpgradeTrack) (UpgradeTrack, int64) {
	cost := t.NextCost
	next := UpgradeTrack{
		Level:         t.Level + 1,
		Multiplier:    math.Round(t.Multiplier*UpgradeMultiplierStep*100) / 100,
		NextCost:      int64(float64(t.NextCost) * UpgradeCostGrowth),
		TotalInvested: t.TotalInvested + cost,
	}
	return next, int64(float64(cost) * UpgradePriceShare)
}

func upgradedIncome(base int, multiplier float64) int64 {
	return int64(float64(base) * multiplier)
}

// ledgerLeg is one row of the transaction log. All legs emitted by a single
// engine operation share one tx group id.
type ledgerLeg struct {
	from        *int64
	to          *int64
	amount      int64
	category    string
	description string
}

// purchaseLegs builds the transaction-log rows for one purchase: the buyer's
// purchase leg always, plus a sale leg crediting the previous owner when one
// exists.
func purchaseLegs(buyerID, assetID int64, prevOwner *int64, price int64) []ledgerLeg {
	legs := []ledgerLeg{{
		from:        &buyerID,
		to:          &assetID,
		amount:      price,
		category:    "purchase",
		description: "asset purchase",
	}}
	if prevOwner != nil {
		legs = append(legs, ledgerLeg{
			from:        &buyerID,
			to:          prevOwner,
			amount:      saleCredit(price),
			category:    "sale",
			description: "asset sale proceeds",
		})
	}
	return legs
}
