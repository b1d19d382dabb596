package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

// Outbox records every notification in the notifications table, giving
// recipients an inbox and operators an audit trail.
type Outbox struct {
	DB *gorm.DB
}

// Notify implements Notifier.
func (o *Outbox) Notify(ctx context.Context, msg Message) error {
	_, err := Record(o.DB.WithContext(ctx), msg)
	return err
}

// Record writes a notification row.
func Record(db *gorm.DB, msg Message) (*models.Notification, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("notify: recipient is required")
	}
	if msg.Subject == "" {
		return nil, fmt.Errorf("notify: subject is required")
	}

	n := models.Notification{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("notify: record: %w", err)
	}
	return &n, nil
}

// Inbox returns notifications for a recipient, oldest first.
func Inbox(db *gorm.DB, recipient string) ([]models.Notification, error) {
	if recipient == "" {
		return nil, fmt.Errorf("notify: recipient is required")
	}

	var ns []models.Notification
	if err := db.Where("recipient = ?", recipient).
		Order("created_at ASC, id ASC").Find(&ns).Error; err != nil {
		return nil, fmt.Errorf("notify: inbox %s: %w", recipient, err)
	}
	return ns, nil
}
