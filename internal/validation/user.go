// Package validation проверяет поля форм до обращения к хранилищу.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 6
	// MaxNameLen максимальная длина имени (пользователя, HR, компании)
	MaxNameLen = 100
	// MaxEmailLen максимальная длина email (RFC 5321)
	MaxEmailLen = 254
	// MaxTemplateLen максимальная длина текста письма
	MaxTemplateLen = 10000
)

// ValidateName проверяет отображаемое имя
func ValidateName(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(value) > MaxNameLen {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxNameLen)
	}
	return nil
}

// ValidateEmail проверяет, что value - голый адрес вида user@host, без имени и угловых скобок
func ValidateEmail(value string) error {
	if value == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(value) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю.
// Пробелы значимы и не обрезаются.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// ValidateTemplate проверяет текст письма; пустой допустим
func ValidateTemplate(value string) error {
	if utf8.RuneCountInString(value) > MaxTemplateLen {
		return fmt.Errorf("message template must not exceed %d characters", MaxTemplateLen)
	}
	return nil
}
