package web

import "github.com/iudanet/outreach/internal/models"

// LoginPage - страница входа
type LoginPage struct {
	Email   string
	Success bool
}

// DashboardPage - главная страница пользователя
type DashboardPage struct {
	UserName string
}

// CompanyForm - форма создания и редактирования компании
type CompanyForm struct {
	HRName      string
	Email       string
	CompanyName string
	ID          int64
}

// CompanyRow - строка таблицы компаний
type CompanyRow struct {
	HRName      string
	Email       string
	CompanyName string
	OwnerName   string
	ID          int64
	MailsSent   int64
}

// CompaniesPage - фрагмент таблицы компаний с пагинацией
type CompaniesPage struct {
	Rows       []CompanyRow
	Page       int
	TotalPages int
	Total      int
}

// HasPrev сообщает, есть ли предыдущая страница
func (p CompaniesPage) HasPrev() bool { return p.Page > 1 }

// HasNext сообщает, есть ли следующая страница
func (p CompaniesPage) HasNext() bool { return p.Page < p.TotalPages }

// PrevPage - номер предыдущей страницы
func (p CompaniesPage) PrevPage() int { return p.Page - 1 }

// NextPage - номер следующей страницы
func (p CompaniesPage) NextPage() int { return p.Page + 1 }

// NewCompaniesPage собирает страницу из строк хранилища
func NewCompaniesPage(items []models.CompanySummary, page, total, perPage int) CompaniesPage {
	rows := make([]CompanyRow, 0, len(items))
	for _, c := range items {
		rows = append(rows, CompanyRow{
			ID:          c.ID,
			HRName:      c.HRName,
			Email:       c.Email,
			CompanyName: c.CompanyName,
			OwnerName:   c.OwnerName,
			MailsSent:   c.MailsSent,
		})
	}

	return CompaniesPage{
		Rows:       rows,
		Page:       page,
		Total:      total,
		TotalPages: TotalPages(total, perPage),
	}
}

// TotalPages - число страниц, округление вверх
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// ProfilePage - страница профиля. App password не выводится.
type ProfilePage struct {
	Name            string
	Email           string
	MessageTemplate string
	MailInterval    string
	ResumeName      string
	HasAppPassword  bool
}

// MailIntervals - допустимые значения периодичности рассылки
var MailIntervals = []string{"daily", "weekly", "monthly"}

// Intervals возвращает варианты для select
func (p ProfilePage) Intervals() []string { return MailIntervals }

// MessagePage - простая страница с сообщением (например 404)
type MessagePage struct {
	Title   string
	Message string
}
