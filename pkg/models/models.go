package models

import (
	"time"
)

// BalanceEntry represents a single account's point balance in the ledger.
type BalanceEntry struct {
	AccountID string `json:"account_id" dynamodbav:"account_id"`
	Points    int64  `json:"points" dynamodbav:"points"`
}

// Item represents a purchasable catalog item.
type Item struct {
	ID              string `json:"item_id"`
	Name            string `json:"item_name"`
	Price           int64  `json:"item_price"`
	CommandTemplate string `json:"item_cmd"`
	IconURL         string `json:"item_icon"`
}

// Credential is a short-lived one-time code bound to an account.
// At most one live credential exists per account; issuing a new one
// supersedes the prior.
type Credential struct {
	AccountID string    `json:"account_id"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Profile is the directory's view of an account.
type Profile struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// AccountProfile composes directory identity with the ledger balance.
type AccountProfile struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Points    int64  `json:"points"`
}

// PurchaseStatus defines the possible states of a purchase attempt.
type PurchaseStatus string

const (
	REQUESTED PurchaseStatus = "REQUESTED"
	VERIFIED  PurchaseStatus = "VERIFIED"
	DEDUCTED  PurchaseStatus = "DEDUCTED"
	DELIVERED PurchaseStatus = "DELIVERED"
	SETTLED   PurchaseStatus = "SETTLED"
	REFUNDED  PurchaseStatus = "REFUNDED"
	AMBIGUOUS PurchaseStatus = "AMBIGUOUS"
)

// Receipt is the terminal record of a settled purchase.
type Receipt struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	ItemID           string    `json:"item_id"`
	ItemName         string    `json:"item_name"`
	Price            int64     `json:"price"`
	RemainingBalance int64     `json:"remaining_balance"`
	Command          string    `json:"command"`
	CreatedAt        time.Time `json:"created_at"`
}

// AmbiguousDelivery records a purchase whose remote command delivery timed
// out. The command may or may not have executed, so the spend is kept and
// the record is handed to the reconciliation queue for manual review.
type AmbiguousDelivery struct {
	PurchaseID string    `json:"purchase_id"`
	AccountID  string    `json:"account_id"`
	ItemID     string    `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Price      int64     `json:"price"`
	Command    string    `json:"command"`
	OccurredAt time.Time `json:"occurred_at"`
}
