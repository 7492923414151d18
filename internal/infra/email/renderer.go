package email

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"membership_renewal_service/internal/domain/notification"
)

var (
	ErrUnknownTemplate = errors.New("unknown email template")
	ErrRenderFailed    = errors.New("email template rendering failed")
)

// Header values never carry line breaks.
var headerLineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Message is a rendered email ready for a transport.
type Message struct {
	Subject string
	Body    string
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("Monday, January 2, 2006") },
}

const renewalReminderSubject = `Your {{if .PlanType}}{{.PlanType}} {{end}}membership ends on {{date .EndDate}}`

const renewalReminderBody = `Hi {{.ClientName}},

Your {{if .PlanType}}{{.PlanType}} {{end}}membership expires on {{date .EndDate}}.

Renew at the front desk or from your member dashboard to keep booking classes,
trainer sessions and logging workouts without interruption.

See you at the gym!
`

// TemplateRenderer turns a template ID and its data into a Message.
type TemplateRenderer struct {
	templates map[notification.TemplateID]emailTemplate
}

func NewTemplateRenderer() *TemplateRenderer {
	r := &TemplateRenderer{templates: make(map[notification.TemplateID]emailTemplate)}
	r.mustRegister(notification.TemplateRenewalReminder, renewalReminderSubject, renewalReminderBody)
	return r
}

func (r *TemplateRenderer) mustRegister(id notification.TemplateID, subject, body string) {
	r.templates[id] = emailTemplate{
		subject: template.Must(template.New(string(id) + "_subject").Funcs(templateFuncs).Parse(subject)),
		body:    template.Must(template.New(string(id) + "_body").Funcs(templateFuncs).Parse(body)),
	}
}

// Render executes the subject and body templates for id.
func (r *TemplateRenderer) Render(id notification.TemplateID, data any) (*Message, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("%w: subject for %s: %w", ErrRenderFailed, id, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("%w: body for %s: %w", ErrRenderFailed, id, err)
	}
	return &Message{Subject: headerLineBreaks.Replace(subject.String()), Body: body.String()}, nil
}
