package mailer

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrUnknownType = errors.New("unsupported mail type")

var subjects = map[domain.MailType]string{
	domain.MailNewAccount:        "Museum staffing - your account",
	domain.MailLatenessReport:    "Museum staffing - lateness report",
	domain.MailAssignmentSummary: "Museum staffing - weekly assignment summary",
	domain.MailGuardReport:       "Museum staffing - guard report",
}

// Envelope is a queued message as it arrives from the broker.
type Envelope struct {
	Type domain.MailType `json:"type"`
	To   string          `json:"to"`
	Data map[string]any  `json:"data"`
}

func Decode(body []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, err
	}
	if env.To == "" {
		return nil, errors.New("missing recipient")
	}
	return env, nil
}

// Render returns the subject and HTML body for the envelope.
func Render(env *Envelope) (string, string, error) {
	subject, ok := subjects[env.Type]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(env.Type)+".html", env.Data); err != nil {
		return "", "", err
	}

	if env.Type == domain.MailGuardReport {
		if name, ok := env.Data["guard_name"].(string); ok && name != "" {
			subject += " from " + name
		}
	}

	return subject, buf.String(), nil
}

// Build turns the envelope into a go-mail message ready to send.
func Build(from string, env *Envelope) (*mail.Msg, error) {
	subject, body, err := Render(env)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, err
	}
	if err := m.To(env.To); err != nil {
		return nil, err
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, body)

	return m, nil
}

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}
