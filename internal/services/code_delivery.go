package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"legaltrainer/internal/models"
	"legaltrainer/internal/utils"
)

// CodeDelivery pushes an issued code to its channel.
type CodeDelivery interface {
	DeliverCode(ctx context.Context, channel models.CodeChannel, identity, code string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) (*utils.SendSMSResponse, error)
}

type BotSender interface {
	SendMessage(chatID int64, text string) error
}

type channelDelivery struct {
	email EmailService
	sms   SMSSender
	bot   BotSender
	ttl   time.Duration
}

// NewChannelDelivery wires the three outbound channels. Any of them may be nil,
// in which case delivery over that channel fails (and is logged by the caller).
func NewChannelDelivery(email EmailService, sms SMSSender, bot BotSender, ttl time.Duration) CodeDelivery {
	return &channelDelivery{email: email, sms: sms, bot: bot, ttl: ttl}
}

func (d *channelDelivery) DeliverCode(ctx context.Context, channel models.CodeChannel, identity, code string) error {
	minutes := int(d.ttl.Minutes())
	switch channel {
	case models.ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("email channel not configured")
		}
		body := fmt.Sprintf(`
		<h3>Your Legal Trainer sign-in code</h3>
		<p>Code: <strong>%s</strong></p>
		<p>It expires in %d minutes. If you did not request it, ignore this email.</p>
	`, code, minutes)
		return d.email.SendEmail(identity, "Your sign-in code", body)

	case models.ChannelPhone:
		if d.sms == nil {
			return fmt.Errorf("sms channel not configured")
		}
		_, err := d.sms.SendSMS(ctx, identity, fmt.Sprintf("Legal Trainer code: %s", code))
		return err

	case models.ChannelBot:
		if d.bot == nil {
			return fmt.Errorf("bot channel not configured")
		}
		chatID, err := strconv.ParseInt(identity, 10, 64)
		if err != nil {
			return fmt.Errorf("bot identity %q: %w", identity, err)
		}
		return d.bot.SendMessage(chatID, fmt.Sprintf(
			"Your sign-in code: <code>%s</code>\nValid for %d minutes.", code, minutes))
	}
	return fmt.Errorf("unknown channel %q", channel)
}
