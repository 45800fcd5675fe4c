package mail

type ConfirmationEmailData struct {
	Name    string
	Company string
	English bool
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
