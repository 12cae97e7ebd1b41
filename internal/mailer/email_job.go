package mailer

// EmailJob is the JSON payload put on the email queue. Either Template (with
// Data) or a literal Subject/Text/HTML triple is set.
type EmailJob struct {
	ID       string         `json:"id"`
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Template names.
const (
	TemplateAccountRegistered  = "account_registered"
	TemplateAccountCreated     = "account_created"
	TemplateAccountApproved    = "account_approved"
	TemplateAccountRejected    = "account_rejected"
	TemplateAccountActivated   = "account_activated"
	TemplateAccountDeactivated = "account_deactivated"
	TemplateNFCAssigned        = "nfc_assigned"
	TemplatePasswordReset      = "password_reset"
	TemplatePasswordChanged    = "password_changed"
)
