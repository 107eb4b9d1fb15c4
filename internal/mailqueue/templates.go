package mailqueue

import (
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

type mailTemplate struct {
	file    string
	subject string
}

var mailTemplates = map[string]mailTemplate{
	domain.MailTypeSignupConfirmation: {
		file:    "signup_confirmation_email.html",
		subject: "%s - Signup Confirmation",
	},
}

// ParseTemplate 根据邮件类型读取模板，programName 用于生成邮件标题
func ParseTemplate(dir string, mailType string, programName string) (*template.Template, string, error) {
	mt, ok := mailTemplates[mailType]
	if !ok {
		return nil, "", fmt.Errorf("unsupported mail type %q", mailType)
	}

	tmpl, err := template.ParseFiles(filepath.Join(dir, mt.file))
	if err != nil {
		return nil, "", err
	}

	return tmpl, fmt.Sprintf(mt.subject, programName), nil
}
