package model

// Submission is one contact form post. Fields only need to be non-empty; the
// address is passed on as Reply-To and never used as a recipient.
type Submission struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Notification is what gets handed to a mailer.
type Notification struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Diagnosis is served by the email diagnostics endpoint. Secrets are only
// ever reported as set or not set.
type Diagnosis struct {
	Mailer          string   `json:"mailer"`
	MailerStatus    string   `json:"mailerStatus"`
	EmailConfigured bool     `json:"emailConfigured"`
	InquiryEmail    string   `json:"inquiryEmail"`
	Recommendations []string `json:"recommendations"`
}
