package models

import "time"

// DispatchOutcome is the immutable result of one mail dispatch attempt.
// Exactly one outcome is recorded per attempt, after the transmission resolved.
type DispatchOutcome struct {
	Timestamp time.Time `json:"timestamp"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CompanyID int64     `json:"company_id"`
	Succeeded bool      `json:"succeeded"`
}
