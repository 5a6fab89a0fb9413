package game

import "time"

// Account is one participant, both an economic actor and a purchasable
// asset.
type Account struct {
	ID            int64      `json:"id"`
	DisplayName   string     `json:"display_name,omitempty"`
	Balance       int64      `json:"balance"`
	Points        float64    `json:"points"`
	Price         int64      `json:"price"`
	OwnerID       *int64     `json:"owner_id,omitempty"`
	ShieldActive  bool       `json:"shield_active"`
	ShieldUntil   *time.Time `json:"shield_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReferralToken string     `json:"referral_token"`
}

// OwnedAsset is the listing view of one asset in somebody's empire.
type OwnedAsset struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	Price       int64     `json:"price"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// OwnershipRecord is one immutable provenance entry. A nil OldOwnerID means
// the asset was unowned; a nil NewOwnerID means it liberated itself.
type OwnershipRecord struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"asset_id"`
	OldOwnerID *int64    `json:"old_owner_id,omitempty"`
	NewOwnerID *int64    `json:"new_owner_id,omitempty"`
	Price      int64     `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PurchaseResult reports a committed purchase back to the caller.
type PurchaseResult struct {
	AssetID      int64   `json:"asset_id"`
	PricePaid    int64   `json:"price_paid"`
	NewPrice     int64   `json:"new_price"`
	PointsEarned float64 `json:"points_earned"`
	BuyerBalance int64   `json:"buyer_balance"`
}

// WorkBatch reports a freshly created set of work assignments.
type WorkBatch struct {
	Assignments    int       `json:"assignments"`
	ExpectedReward int64     `json:"expected_reward"`
	EndsAt         time.Time `json:"ends_at"`
}

// WorkStatus is a read-only projection of an owner's incomplete
// assignments; ready vs working is derived from the clock at read time.
type WorkStatus struct {
	Active         bool  `json:"active"`
	Workers        int   `json:"workers"`
	Ready          int   `json:"ready"`
	Working        int   `json:"working"`
	ExpectedReward int64 `json:"expected_reward"`
}

// UpgradeResult reports one committed upgrade step.
type UpgradeResult struct {
	AssetID      int64        `json:"asset_id"`
	CostPaid     int64        `json:"cost_paid"`
	Track        UpgradeTrack `json:"track"`
	NewPrice     int64        `json:"new_price"`
	OwnerBalance int64        `json:"owner_balance"`
}

// LeaderboardRow is one entry of a ranked listing; Value carries the
// category metric (asset count, balance, or total owned value).
type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	AccountID   int64  `json:"account_id"`
	DisplayName string `json:"display_name,omitempty"`
	Value       int64  `json:"value"`
}

// MarketStats is an aggregate snapshot of the whole market.
type MarketStats struct {
	TotalAccounts     int   `json:"total_accounts"`
	AvgPrice          int64 `json:"avg_price"`
	MaxPrice          int64 `json:"max_price"`
	TransactionsToday int   `json:"transactions_today"`
}

// BrowseRow is one market-browse listing entry.
type BrowseRow struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Price       int64  `json:"price"`
	OwnerID     *int64 `json:"owner_id,omitempty"`
}

// CreateAccountInput carries everything needed to register a participant.
// ReferralToken, when it resolves to another account, creates the new
// account already captured by the referrer.
type CreateAccountInput struct {
	ID            int64  `json:"id"`
	DisplayName   string `json:"display_name"`
	ReferralToken string `json:"referral_token"`
}
