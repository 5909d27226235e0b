package dashboard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/intent-bot/internal/storage"
	"go.uber.org/zap"
)

const livenessMessage = "Telegram bot is running!"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func Liveness(c *gin.Context) {
	c.String(http.StatusOK, livenessMessage)
}

type Handler struct {
	store  storage.Storage
	logger *zap.Logger
}

func NewHandler(store storage.Storage, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// GET /
func (h *Handler) Index(c *gin.Context) {
	ids, err := h.store.ListUserIDs(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "list_users_failed", err)
		return
	}
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Title":   "Users",
		"UserIDs": ids,
	})
}

// GET /user/:id
func (h *Handler) User(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}

	conversations, err := h.store.GetUserConversations(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get user conversations", zap.Error(err), zap.Int64("user_id", userID))
		RespondError(c, http.StatusInternalServerError, "user_conversations_failed", err)
		return
	}
	c.HTML(http.StatusOK, "user.tmpl", gin.H{
		"Title":         fmt.Sprintf("Conversations of user %d", userID),
		"Conversations": conversations,
	})
}

// GET /dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	conversations, err := h.store.ListConversations(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list conversations", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "list_conversations_failed", err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.tmpl", gin.H{
		"Title":         "All conversations",
		"Conversations": conversations,
	})
}
