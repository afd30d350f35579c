package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrEmail   = "email"
	attrPurpose = "purpose"
	attrID      = "id"
	attrUserID  = "user_id"

	fieldClaimID          = "claim_id"
	fieldClaimedUntil     = "claimed_until"
	fieldPasswordHash     = "password_hash"
	fieldEmailConfirmed   = "email_confirmed"
	fieldEmailConfirmedAt = "email_confirmed_at"
	fieldUpdatedAt        = "updated_at"
	fieldOwnerID          = "owner_id"

	indexEmail = "email-index"
)
