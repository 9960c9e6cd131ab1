package mailer

// Значения письма по умолчанию
const (
	DefaultSubject = "Application for Job"
	DefaultBody    = "Hello, please find my resume attached."
)

// Job - задание на отправку резюме одной компании
type Job struct {
	SenderEmail  string
	SenderSecret string // app password, в логи не попадает
	Recipient    string
	Subject      string
	Body         string
	ResumeKey    string
	ResumeName   string
	UserID       int64
	CompanyID    int64
}

// Message - готовое письмо с одним вложением
type Message struct {
	From           string
	Secret         string
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// BuildMessage собирает письмо из задания и содержимого вложения.
// Пустые тема и текст заменяются значениями по умолчанию.
func BuildMessage(job Job, attachment []byte, attachmentName string) *Message {
	subject := job.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	body := job.Body
	if body == "" {
		body = DefaultBody
	}

	return &Message{
		From:           job.SenderEmail,
		Secret:         job.SenderSecret,
		To:             job.Recipient,
		Subject:        subject,
		Body:           body,
		AttachmentName: attachmentName,
		Attachment:     attachment,
	}
}
