package api

// CompanyItem - строка списка компаний
type CompanyItem struct {
	HRName      string `json:"hr_name"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	OwnerName   string `json:"owner_name"`
	ID          int64  `json:"id"`
	MailsSent   int64  `json:"mails_sent"`
}

// CompaniesResponse - страница списка компаний пользователя
type CompaniesResponse struct {
	Companies  []CompanyItem `json:"companies"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
}

// DispatchItem - запись журнала отправок
type DispatchItem struct {
	Timestamp string `json:"timestamp"`
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Succeeded bool   `json:"succeeded"`
}
