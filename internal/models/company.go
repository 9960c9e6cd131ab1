package models

import "time"

// Company представляет компанию (контакт HR), которой пользователь отправляет резюме
type Company struct {
	CreatedAt   time.Time `json:"created_at"`
	HRName      string    `json:"hr_name"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
}

// CompanySummary is a company row enriched with the number of successfully
// delivered mails and the owner's name, as shown on the company list.
type CompanySummary struct {
	OwnerName string `json:"owner_name"`
	Company
	MailsSent int64 `json:"mails_sent"`
}
