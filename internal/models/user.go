package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt        time.Time `json:"created_at"`       // время создания
	UpdatedAt        time.Time `json:"updated_at"`       // время последнего обновления
	Name             string    `json:"name"`             // отображаемое имя
	Email            string    `json:"email"`            // уникальный email, он же адрес отправителя
	PasswordHash     string    `json:"-"`                // bcrypt хеш пароля
	ResumeKey        string    `json:"resume_key"`       // ключ резюме в файловом хранилище
	ResumeName       string    `json:"resume_name"`      // исходное имя загруженного файла
	MessageTemplate  string    `json:"message_template"` // текст письма
	GmailAppPassword string    `json:"-"`                // app password (в БД хранится зашифрованным)
	MailInterval     string    `json:"mail_interval"`    // желаемая периодичность рассылки
	ID               int64     `json:"id"`               // автоинкрементный ID
}

// HasMailCredentials reports whether the user can authenticate against the mail relay.
func (u *User) HasMailCredentials() bool {
	return u.Email != "" && u.GmailAppPassword != ""
}
