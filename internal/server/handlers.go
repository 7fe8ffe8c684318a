package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// expenseRequest is the inbound payload of POST /api/expenses.
type expenseRequest struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

// expenseView is the wire form of a stored expense.
type expenseView struct {
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
	Amount     string    `json:"amount"`
	Category   string    `json:"category"`
	Note       string    `json:"note,omitempty"`
	ID         int64     `json:"id"`
}

func errorBody(message string) gin.H {
	return gin.H{"status": model.StatusError, "message": message}
}

func (srv *Server) createExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid JSON in request body"))
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, errorBody("Please provide expense text"))
		return
	}

	var timestamp *time.Time
	if ts := strings.TrimSpace(req.Timestamp); ts != "" {
		parsed, err := common.ParseTimestamp(ts)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("timestamp must be an ISO-8601 date or date-time"))
			return
		}
		timestamp = &parsed
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = srv.cfg.DefaultUserID
	}

	result := srv.cfg.Processor.Process(c.Request.Context(), engine.Request{
		Text:      text,
		Timestamp: timestamp,
		UserID:    userID,
	})

	if result.Err != nil {
		srv.logger.Warn("expense request failed",
			"request_id", c.GetString(requestIDKey),
			"state", result.State,
			"error", result.Err)
	}

	c.JSON(http.StatusOK, result)
}

func (srv *Server) listExpenses(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	expenses, err := srv.cfg.Expenses.RecentExpenses(c.Request.Context(), limit)
	if err != nil {
		srv.logger.Error("failed to list expenses", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("Could not load expenses"))
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, expenseView{
			ID:         e.ID,
			Amount:     e.Amount.StringFixed(model.CurrencyPlaces),
			Category:   e.Category,
			Note:       e.Note,
			RecordedAt: e.RecordedAt,
			CreatedAt:  e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"expenses": views, "count": len(views)})
}

func (srv *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "budgetbuddy",
		"version": srv.cfg.Version,
	})
}
