package mailqueue

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

func TestParseTemplate_SignupConfirmation(t *testing.T) {
	tmpl, subject, err := ParseTemplate("../../templates", domain.MailTypeSignupConfirmation, "Spring 2026 Student Assistant Program")
	require.NoError(t, err)
	assert.Equal(t, "Spring 2026 Student Assistant Program - Signup Confirmation", subject)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, domain.SignupConfirmationMailData{
		FullName:    "Jane Doe",
		ProgramName: "Spring 2026 Student Assistant Program",
		Shifts: []domain.ConfirmedShift{
			{Name: "Monday/Thursday 2nd Period", Availability: "Q1 Only"},
			{Name: "Tuesday/Friday 4th Period", Availability: "Full Semester"},
		},
	}))

	body := buf.String()
	assert.Contains(t, body, "Dear Jane Doe,")
	assert.Contains(t, body, "Monday/Thursday 2nd Period")
	assert.Contains(t, body, "Full Semester")
}

func TestParseTemplate_UnknownType(t *testing.T) {
	_, _, err := ParseTemplate("../../templates", "reset_password", "x")
	assert.Error(t, err)
}
