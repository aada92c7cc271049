package domain

import "time"

// Campaign is a promotional campaign owned by a tenant.
type Campaign struct {
	ID        int64
	TenantID  int64
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Coupon is a single redeemable code issued under a campaign.
type Coupon struct {
	ID         int64
	TenantID   int64
	CampaignID int64
	Code       string
	Email      string
	Redeemed   bool
	RedeemedAt *time.Time
	CreatedAt  time.Time
}

// Submission records a public form submission that requested a coupon.
type Submission struct {
	ID        int64
	TenantID  int64
	Email     string
	ClientIP  string
	CreatedAt time.Time
}
