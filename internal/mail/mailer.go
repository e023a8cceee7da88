package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers a single email. The SendGrid implementation is the only
// production one; tests substitute their own.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type SendGridSender struct {
	APIKey   string
	From     string
	FromName string
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	return &SendGridSender{APIKey: apiKey, From: from, FromName: "Plastware"}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, html string) error {
	if s.APIKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.FromName, s.From),
		subject,
		sgmail.NewEmail("", to),
		"",
		html,
	)

	client := sendgrid.NewSendClient(s.APIKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	return nil
}

type message struct {
	to      string
	subject string
	html    string
}

// Dispatcher decouples mail delivery from request handling: handlers enqueue
// and return immediately, a single worker goroutine talks to the relay.
// A full queue drops the message rather than blocking a request.
type Dispatcher struct {
	sender Sender
	log    *slog.Logger
	queue  chan message
	done   chan struct{}
}

func NewDispatcher(sender Sender, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan message, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for m := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.sender.Send(ctx, m.to, m.subject, m.html); err != nil {
			d.log.Error("mail send failed", "to", m.to, "subject", m.subject, "error", err)
		} else {
			d.log.Info("mail sent", "to", m.to, "subject", m.subject)
		}
		cancel()
	}
}

func (d *Dispatcher) Enqueue(to, subject, html string) {
	if d == nil {
		return
	}
	select {
	case d.queue <- message{to: to, subject: subject, html: html}:
	default:
		d.log.Warn("mail queue full, dropping message", "to", to, "subject", subject)
	}
}

// Close stops accepting messages and waits for the worker to drain the queue.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	close(d.queue)
	<-d.done
}
