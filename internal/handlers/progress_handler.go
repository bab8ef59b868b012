package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legaltrainer/internal/middleware"
	"legaltrainer/internal/models"
	"legaltrainer/internal/pdf"
	"legaltrainer/internal/services"
)

type ProgressHandler struct {
	review services.ReviewService
	users  services.UserService
	pdfGen pdf.Generator
	now    func() time.Time
}

func NewProgressHandler(review services.ReviewService, users services.UserService, pdfGen pdf.Generator) *ProgressHandler {
	return &ProgressHandler{review: review, users: users, pdfGen: pdfGen, now: time.Now}
}

// @Summary      Оценка повторения
// @Description  Принимает оценку 0..5 и пересчитывает уровень освоения темы
// @Tags         Progress
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.GradeRequest  true  "Тема и оценка"
// @Success      200   {object}  models.GradeResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /progress/grade [post]
func (h *ProgressHandler) Grade(c *gin.Context, id middleware.Identity) {
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "progress.grade", err)
		return
	}
	res, err := h.review.GradeReview(c.Request.Context(), id.UserID, req.TopicID, *req.Quality)
	if err != nil {
		respondError(c, "progress.grade", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Темы к повторению
// @Tags         Progress
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Максимум записей (по умолчанию 20)"
// @Success      200    {array}   models.UserProgress
// @Failure      400    {object}  map[string]string
// @Router       /progress/due [get]
func (h *ProgressHandler) Due(c *gin.Context, id middleware.Identity) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	items, err := h.review.ListDue(c.Request.Context(), id.UserID, limit)
	if err != nil {
		respondError(c, "progress.due", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary      Сводка прогресса
// @Tags         Progress
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.ProgressSummary
// @Router       /progress/summary [get]
func (h *ProgressHandler) Summary(c *gin.Context, id middleware.Identity) {
	sum, err := h.review.ProgressSummary(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, "progress.summary", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary      PDF-отчёт о прогрессе
// @Tags         Progress
// @Produce      application/pdf
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /progress/report.pdf [get]
func (h *ProgressHandler) Report(c *gin.Context, id middleware.Identity) {
	ctx := c.Request.Context()
	user, err := h.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		respondError(c, "progress.report", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	sum, err := h.review.ProgressSummary(ctx, id.UserID)
	if err != nil {
		respondError(c, "progress.report", err)
		return
	}
	due, err := h.review.ListDue(ctx, id.UserID, 0)
	if err != nil {
		respondError(c, "progress.report", err)
		return
	}

	var buf bytes.Buffer
	err = h.pdfGen.ProgressReport(&buf, pdf.ReportData{
		UserName:    user.DisplayName,
		GeneratedAt: h.now(),
		Summary:     *sum,
		Due:         due,
	})
	if err != nil {
		respondError(c, "progress.report", fmt.Errorf("render pdf: %w", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="progress-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
