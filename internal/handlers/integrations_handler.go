package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
	"legaltrainer/internal/services"
)

const dueDigestSize = 10

// IntegrationsHandler answers Telegram webhook updates.
type IntegrationsHandler struct {
	TG     services.BotSender
	OTP    services.OTPService
	Users  repositories.UserRepository
	Review services.ReviewService
}

func NewIntegrationsHandler(
	tg services.BotSender,
	otp services.OTPService,
	users repositories.UserRepository,
	review services.ReviewService,
) *IntegrationsHandler {
	return &IntegrationsHandler{TG: tg, OTP: otp, Users: users, Review: review}
}

// Webhook always answers 200 so Telegram does not redeliver the update.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.TG == nil {
		log.Printf("[tg][webhook] bot not configured, update ignored")
		c.Status(http.StatusOK)
		return
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil || up.Message.Chat == nil {
		if err != nil {
			log.Printf("[tg][webhook] bind json error: %v", err)
		}
		c.Status(http.StatusOK)
		return
	}

	text := strings.TrimSpace(up.Message.Text)
	chatID := up.Message.Chat.ID
	log.Printf("[tg][webhook] incoming chat_id=%d text=%q", chatID, text)

	switch {
	case strings.HasPrefix(text, "/start"):
		_ = h.TG.SendMessage(chatID, fmt.Sprintf(
			"Hi! Your chat id is <code>%d</code>.\nEnter it on the sign-in page, or send /code to get a sign-in code right here.", chatID))

	case strings.HasPrefix(text, "/code"):
		// the code itself arrives as a separate message from the delivery goroutine
		if err := h.OTP.IssueCode(c.Request.Context(), models.ChannelBot, strconv.FormatInt(chatID, 10)); err != nil {
			log.Printf("[tg][webhook] issue code chat_id=%d: %v", chatID, err)
			_ = h.TG.SendMessage(chatID, "Could not issue a code, please try again later.")
		}

	case strings.HasPrefix(text, "/due"):
		h.sendDueDigest(c, chatID)

	default:
		_ = h.TG.SendMessage(chatID, "Unknown command. Use /start, /code or /due.")
	}

	c.Status(http.StatusOK)
}

func (h *IntegrationsHandler) sendDueDigest(c *gin.Context, chatID int64) {
	ctx := c.Request.Context()
	u, err := h.Users.FindByIdentity(ctx, models.IdentityBot, strconv.FormatInt(chatID, 10))
	if err != nil || u == nil {
		_ = h.TG.SendMessage(chatID, "This chat is not linked yet. Sign in with /code first.")
		return
	}
	due, err := h.Review.ListDue(ctx, u.ID, dueDigestSize)
	if err != nil {
		log.Printf("[tg][due] list due user_id=%d: %v", u.ID, err)
		_ = h.TG.SendMessage(chatID, "Could not load your review queue.")
		return
	}
	if len(due) == 0 {
		_ = h.TG.SendMessage(chatID, "Nothing to review right now. 👍")
		return
	}

	var b strings.Builder
	b.WriteString("📚 <b>Topics to review</b>\n")
	for _, p := range due {
		when := "now"
		if p.NextReview != nil {
			when = p.NextReview.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "• topic #%d, level %d [%s]\n", p.TopicID, p.MasteryLevel, when)
	}
	_ = h.TG.SendMessage(chatID, b.String())
}
