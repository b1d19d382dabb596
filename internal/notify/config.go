package notify

import (
	"github.com/insurai/claimdesk/internal/config"
	"gorm.io/gorm"
)

// FromConfig builds the notifier fan-out: the outbox always, plus every
// channel the configuration enables.
func FromConfig(db *gorm.DB, cfg config.NotifyConfig) (Notifier, error) {
	m := Multi{&Outbox{DB: db}}
	if cfg.Command != "" {
		m = append(m, &Command{Template: cfg.Command})
	}
	if cfg.Slack.BotToken != "" {
		s, err := NewSlack(cfg.Slack.BotToken, cfg.Slack.ChannelID)
		if err != nil {
			return nil, err
		}
		m = append(m, s)
	}
	if cfg.Discord.BotToken != "" {
		d, err := NewDiscord(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		m = append(m, d)
	}
	return m, nil
}
