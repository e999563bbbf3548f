package model

import "time"

// TransactionType names one side of a point movement.
type TransactionType string

// Transaction types. Each exchange kind has a sending and a receiving side.
const (
	TxSwapSent     TransactionType = "swap_sent"
	TxSwapReceived TransactionType = "swap_received"
	TxRedeemSpent  TransactionType = "redeem_spent"
	TxRedeemEarned TransactionType = "redeem_earned"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxSwapSent, TxSwapReceived, TxRedeemSpent, TxRedeemEarned:
		return true
	}
	return false
}

// Debit reports whether entries of this type take points away.
func (t TransactionType) Debit() bool {
	return t == TxSwapSent || t == TxRedeemSpent
}

// Transaction is an immutable entry in the points log.
type Transaction struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	ItemID    int64           `json:"item_id" db:"item_id"`
	Type      TransactionType `json:"type" db:"type"`
	Points    int             `json:"points" db:"points"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`

	// Joined fields (not always populated).
	ItemTitle string `json:"item_title,omitempty" db:"item_title"`
}
