package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaltrainer/internal/middleware"
	"legaltrainer/internal/models"
	"legaltrainer/internal/services"
)

type AttemptHandler struct {
	service services.AttemptService
}

func NewAttemptHandler(service services.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: service}
}

// @Summary      Сохранить попытку теста
// @Tags         Attempts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateAttemptRequest  true  "Результат"
// @Success      201   {object}  models.QuizAttempt
// @Failure      400   {object}  map[string]string
// @Router       /attempts [post]
func (h *AttemptHandler) Create(c *gin.Context, id middleware.Identity) {
	var req models.CreateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "attempts.create", err)
		return
	}
	a, err := h.service.Record(c.Request.Context(), id.UserID, req)
	if err != nil {
		respondError(c, "attempts.create", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary      История попыток
// @Tags         Attempts
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Страница (с 1)"
// @Param        limit  query     int  false  "Размер страницы"
// @Success      200    {object}  map[string]interface{}
// @Router       /attempts [get]
func (h *AttemptHandler) List(c *gin.Context, id middleware.Identity) {
	page, ok1 := queryInt(c, "page", 1)
	limit, ok2 := queryInt(c, "limit", 20)
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination"})
		return
	}
	items, total, err := h.service.History(c.Request.Context(), id.UserID, page, limit)
	if err != nil {
		respondError(c, "attempts.list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}
