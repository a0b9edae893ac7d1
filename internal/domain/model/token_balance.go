package model

import "time"

// TokenBalance is the abstract generation currency held per user.
type TokenBalance struct {
	UserID    string    `json:"user_id"`
	Tokens    int64     `json:"tokens"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenLedgerEntry records one balance movement, tied to a job when the
// movement was caused by a submission or refund.
type TokenLedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id,omitempty"`
	Amount    int64     `json:"amount"` // negative for deductions
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
