package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Reject drops a message that can never be delivered
	Reject
	// Requeue returns the message to the queue for another attempt
	Requeue
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

var mailTemplates = map[string]mailTemplate{
	EventResetRequested: {
		subject: "AstraSemi Assistant - Password reset requested",
		body: template.Must(template.New(EventResetRequested).Parse(
			"User {{.username}} asked for a password reset.\n" +
				"{{if .hint}}Note from the user: {{.hint}}\n{{end}}" +
				"Ticket: {{.ticketId}}\n\n" +
				"Open the admin console to approve or deny the request.\n")),
	},
	EventResetResolved: {
		subject: "AstraSemi Assistant - Password reset update",
		body: template.Must(template.New(EventResetResolved).Parse(
			"The password reset ticket {{.ticketId}} for {{.username}} was {{.status}}.\n" +
				"{{if .message}}{{.message}}\n{{end}}")),
	},
}

// Sender is the subset of *mail.Client used to deliver messages.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer turns queued events into admin e-mails.
type Mailer struct {
	sender Sender
	from   string
	to     string
}

func NewMailer(sender Sender, from, to string) *Mailer {
	return &Mailer{sender: sender, from: from, to: to}
}

// BuildMessage renders the e-mail for an event.
func (m *Mailer) BuildMessage(event Event) (*mail.Msg, error) {
	tmpl, ok := mailTemplates[event.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported event type %q", event.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	subject := tmpl.subject
	if status := event.Data["status"]; status != "" {
		subject = fmt.Sprintf("AstraSemi Assistant - Password reset %s", status)
	}
	msg.Subject(subject)

	if err := msg.SetBodyTextTemplate(tmpl.body, event.Data); err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}
	return msg, nil
}

// Handle processes one delivery body. Malformed or unsupported events are
// rejected; SMTP failures are requeued.
func (m *Mailer) Handle(ctx context.Context, body []byte) Outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		applog.Log.Error("Failed to decode notification", zap.Error(err))
		return Reject
	}

	msg, err := m.BuildMessage(event)
	if err != nil {
		applog.Log.Error("Failed to build notification mail",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return Reject
	}

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		applog.Log.Warn("Failed to send notification mail",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return Requeue
	}

	applog.Log.Info("Notification mail sent", zap.String("type", event.Type))
	return Ack
}
