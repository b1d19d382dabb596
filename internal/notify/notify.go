// Package notify delivers outbound notifications about appointments and
// claims. Delivery is best-effort: failures are logged and never fail the
// operation that triggered them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Message is one notification addressed to a recipient email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers msg on every channel, continuing past failures.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Message) error { return nil }

// Deliver sends msg through n and logs any failure. A nil notifier or an
// empty recipient is skipped.
func Deliver(ctx context.Context, n Notifier, msg Message) {
	if n == nil {
		return
	}
	if msg.To == "" {
		log.Printf("notify: skipping %q: recipient has no email", msg.Subject)
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		log.Printf("notify: deliver %q to %s: %v", msg.Subject, msg.To, err)
	}
}

// Func adapts a function into a Notifier.
type Func func(ctx context.Context, msg Message) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

func formatChat(msg Message) string {
	return fmt.Sprintf("*%s* (to %s)\n%s", msg.Subject, msg.To, msg.Body)
}
