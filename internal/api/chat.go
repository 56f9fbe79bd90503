package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nelfi/navigator/internal/chatlog"
	"github.com/nelfi/navigator/internal/dialogue"
)

// Responder produces the assistant reply for one chat turn.
type Responder interface {
	Respond(ctx context.Context, phone, message string) (*dialogue.Turn, error)
}

// ChatHandler handles conversation endpoints.
type ChatHandler struct {
	store  ChatStore
	engine Responder
	logger *slog.Logger
}

// NewChatHandler creates the handler.
func NewChatHandler(store ChatStore, engine Responder, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{store: store, engine: engine, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.chat)
	mux.HandleFunc("GET /history/{phone}", h.history)
	mux.HandleFunc("DELETE /history/{phone}", h.clear)
}

// ChatRequest is one user message.
type ChatRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// ChatResponse is the assistant reply with its grounding sources.
type ChatResponse struct {
	Response string             `json:"response"`
	Phone    string             `json:"phone"`
	Sources  []chatlog.Citation `json:"sources"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "assistant not configured")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "message too long", "")
		return
	}

	phone, err := chatlog.NormalizePhone(req.Phone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number", err.Error())
		return
	}

	registered, err := h.store.Exists(r.Context(), phone)
	if err != nil {
		h.logger.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
		return
	}
	if !registered {
		writeError(w, http.StatusNotFound, "user not found", "please sign up first")
		return
	}

	turn, err := h.engine.Respond(r.Context(), phone, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
		return
	}

	// Persist both sides of the exchange. Best-effort: the reply is
	// already generated, so persistence failures are logged rather than
	// surfaced as a turn failure.
	if _, err := h.store.Append(r.Context(), phone, req.Message, chatlog.SenderUser, nil); err != nil {
		h.logger.Error("persisting user message", "error", err)
	}
	if _, err := h.store.Append(r.Context(), phone, turn.Response, chatlog.SenderAI, turn.Citations); err != nil {
		h.logger.Error("persisting assistant message", "error", err)
	}

	sources := turn.Citations
	if sources == nil {
		sources = []chatlog.Citation{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Response: turn.Response,
		Phone:    phone,
		Sources:  sources,
	})
}

// HistoryResponse is the stored conversation for one phone number.
type HistoryResponse struct {
	Phone   string            `json:"phone"`
	History []chatlog.Message `json:"history"`
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "store not configured")
		return
	}

	phone := r.PathValue("phone")
	msgs, err := h.store.History(r.Context(), phone, 0)
	if err != nil {
		if errors.Is(err, chatlog.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number", err.Error())
			return
		}
		h.logger.Error("loading history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading history failed", err.Error())
		return
	}

	normalized, _ := chatlog.NormalizePhone(phone)
	writeJSON(w, http.StatusOK, HistoryResponse{Phone: normalized, History: msgs})
}

// ClearResponse reports the outcome of a history deletion.
type ClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *ChatHandler) clear(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable", "store not configured")
		return
	}

	phone := r.PathValue("phone")
	deleted, err := h.store.Clear(r.Context(), phone)
	if err != nil {
		if errors.Is(err, chatlog.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number", err.Error())
			return
		}
		h.logger.Error("clearing history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "clearing history failed", err.Error())
		return
	}

	if deleted == 0 {
		writeJSON(w, http.StatusOK, ClearResponse{
			Status:  "no_content",
			Message: "no chat history found for this number",
		})
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{
		Status:  "success",
		Message: "chat history cleared",
	})
}
