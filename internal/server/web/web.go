// Package web рендерит HTML страницы из встроенных шаблонов.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Имена шаблонов
const (
	PageLogin               = "login.html"
	PageRegistration        = "user_registration.html"
	PageDashboard           = "dashboard.html"
	PageCompanyRegistration = "company_registration.html"
	PageEditCompany         = "edit_company.html"
	PageProfile             = "updateprofile.html"
	PageMessage             = "message.html"
	FragmentCompanies       = "companies.html"
)

// Renderer исполняет встроенные шаблоны
type Renderer struct {
	templates *template.Template
}

// NewRenderer разбирает все встроенные шаблоны
func NewRenderer() (*Renderer, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render исполняет шаблон name в буфер и только потом пишет в w,
// чтобы ошибка шаблона не оставила наполовину записанный ответ
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
