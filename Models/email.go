package Models

// EmailConfig holds the SMTP settings for the reminder sender, loaded from
// the environment in main.
type EmailConfig struct {
	SMTPServer   string
	SMTPPort     int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	TLSEnabled   bool
	SkipTLSCheck bool
}

// EmailMessage is a reminder or alert email to be sent.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}
