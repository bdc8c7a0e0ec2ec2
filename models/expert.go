package models

import "time"

// Expert is the service provider who owns availability and receives payouts.
// Experts are created by the onboarding surface and never hard-deleted.
type Expert struct {
	ID                      ExpertID        `bson:"id" json:"id"`
	Handle                  string          `bson:"handle" json:"handle"`
	Timezone                string          `bson:"timezone" json:"timezone"` // IANA name, e.g. "Europe/Lisbon"
	PayoutAccountID         PayoutAccountID `bson:"payout_account_id" json:"payoutAccountId"`
	Country                 string          `bson:"country" json:"country"` // ISO-2
	Active                  bool            `bson:"active" json:"active"`
	RequiresPayoutApproval  bool            `bson:"requires_payout_approval" json:"requiresPayoutApproval"`
	CreatedAt               time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt               time.Time       `bson:"updated_at" json:"updatedAt"`
}
