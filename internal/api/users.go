package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nelfi/navigator/internal/chatlog"
)

// Input validation bounds.
const (
	MaxFullNameLength = 200
	MaxMessageLength  = 4000
)

// ChatStore is the slice of the chat log the gateway serves.
type ChatStore interface {
	Signup(ctx context.Context, phone, fullName string) (*chatlog.SignupResult, error)
	Append(ctx context.Context, phone, text, sender string, citations []chatlog.Citation) (uuid.UUID, error)
	History(ctx context.Context, phone string, limit int32) ([]chatlog.Message, error)
	Clear(ctx context.Context, phone string) (int64, error)
	Exists(ctx context.Context, phone string) (bool, error)
}

// UserHandler handles user registration.
type UserHandler struct {
	store  ChatStore
	logger *slog.Logger
}

// NewUserHandler creates the handler.
func NewUserHandler(store ChatStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

// RegisterRoutes registers user routes on the given mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.signup)
}

// SignupRequest is the request body for registration.
type SignupRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
}

// SignupResponse confirms a registration or a returning user.
type SignupResponse struct {
	UserID   string `json:"user_id"`
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
	Message  string `json:"message"`
}

func (h *UserHandler) signup(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "store not configured")
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		writeError(w, http.StatusBadRequest, "full_name is required", "")
		return
	}
	if len(req.FullName) > MaxFullNameLength {
		writeError(w, http.StatusBadRequest, "full_name too long", "")
		return
	}

	result, err := h.store.Signup(r.Context(), req.Phone, req.FullName)
	if err != nil {
		if errors.Is(err, chatlog.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number", err.Error())
			return
		}
		h.logger.Error("signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "signup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{
		UserID:   result.User.ID.String(),
		Phone:    result.User.Phone,
		FullName: result.User.FullName,
		Message:  result.Message,
	})
}
