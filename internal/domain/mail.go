package domain

const (
	MailTypeSignupConfirmation = "signup_confirmation"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ConfirmedShift struct {
	Name         string `json:"name"`
	Availability string `json:"availability"`
}

type SignupConfirmationMailData struct {
	FullName    string           `json:"fullName"`
	ProgramName string           `json:"programName"`
	Shifts      []ConfirmedShift `json:"shifts"`
}
