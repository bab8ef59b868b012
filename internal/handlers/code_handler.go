package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaltrainer/internal/models"
	"legaltrainer/internal/services"
)

// CodeHandler serves passwordless sign-in over email, SMS and the bot.
type CodeHandler struct {
	otp  services.OTPService
	auth services.AuthService
}

func NewCodeHandler(otp services.OTPService, auth services.AuthService) *CodeHandler {
	return &CodeHandler{otp: otp, auth: auth}
}

func (h *CodeHandler) issue(c *gin.Context, channel models.CodeChannel, identity string) {
	if err := h.otp.IssueCode(c.Request.Context(), channel, identity); err != nil {
		respondError(c, "code.issue."+string(channel), err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Code sent"})
}

func (h *CodeHandler) verify(c *gin.Context, channel models.CodeChannel, code, identity string) {
	user, err := h.otp.VerifyCode(c.Request.Context(), channel, code, identity)
	if err != nil {
		respondError(c, "code.verify."+string(channel), err)
		return
	}
	tokens, err := h.auth.IssueTokens(c.Request.Context(), user)
	if err != nil {
		respondError(c, "code.verify."+string(channel), err)
		return
	}
	c.JSON(http.StatusOK, models.CodeLoginResponse{User: user, Tokens: *tokens})
}

// @Summary      Код на email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.EmailCodeRequest  true  "Email"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/email/request [post]
func (h *CodeHandler) RequestEmail(c *gin.Context) {
	var req models.EmailCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.issue.email", err)
		return
	}
	h.issue(c, models.ChannelEmail, req.Email)
}

// @Summary      Вход по коду из email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.EmailVerifyRequest  true  "Код"
// @Success      200   {object}  models.CodeLoginResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/email/verify [post]
func (h *CodeHandler) VerifyEmail(c *gin.Context) {
	var req models.EmailVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.verify.email", err)
		return
	}
	h.verify(c, models.ChannelEmail, req.Code, req.Email)
}

// @Summary      Код по SMS
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.SMSCodeRequest  true  "Телефон"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/sms/request [post]
func (h *CodeHandler) RequestSMS(c *gin.Context) {
	var req models.SMSCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.issue.phone", err)
		return
	}
	h.issue(c, models.ChannelPhone, req.Phone)
}

// @Summary      Вход по коду из SMS
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.SMSVerifyRequest  true  "Код"
// @Success      200   {object}  models.CodeLoginResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/sms/verify [post]
func (h *CodeHandler) VerifySMS(c *gin.Context) {
	var req models.SMSVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.verify.phone", err)
		return
	}
	h.verify(c, models.ChannelPhone, req.Code, req.Phone)
}

// @Summary      Код в Telegram-бот
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.BotCodeRequest  true  "Chat id"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/bot/request [post]
func (h *CodeHandler) RequestBot(c *gin.Context) {
	var req models.BotCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.issue.bot", err)
		return
	}
	h.issue(c, models.ChannelBot, req.ChatID)
}

// @Summary      Вход по коду из бота
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.BotVerifyRequest  true  "Код"
// @Success      200   {object}  models.CodeLoginResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/bot/verify [post]
func (h *CodeHandler) VerifyBot(c *gin.Context) {
	var req models.BotVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code.verify.bot", err)
		return
	}
	h.verify(c, models.ChannelBot, req.Code, req.ChatID)
}
