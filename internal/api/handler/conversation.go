package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/sommelier/internal/api/middleware"
	"github.com/Rrens/sommelier/internal/api/response"
	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/service"
)

// ConversationService is what the conversation endpoints need from the service layer
type ConversationService interface {
	ListConversations(ctx context.Context, owner string) ([]domain.RemoteConversation, error)
	ListMessages(ctx context.Context, owner string, conversationID int64) ([]domain.RemoteMessage, error)
	PostMessage(ctx context.Context, owner string, input domain.RemoteMessageCreate) (*domain.RemoteMessage, error)
}

// ConversationHandler handles conversation and message endpoints
type ConversationHandler struct {
	conversationService ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List handles GET /conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conversations, err := h.conversationService.ListConversations(r.Context(), owner)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	response.OK(w, conversations)
}

// Messages handles GET /conversations/{conversationID}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil || conversationID <= 0 {
		response.BadRequest(w, "invalid conversation ID")
		return
	}

	messages, err := h.conversationService.ListMessages(r.Context(), owner, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "conversation not found")
			return
		}
		response.InternalError(w, err)
		return
	}

	response.OK(w, messages)
}

// PostMessage handles POST /messages
func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.RemoteMessageCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		if messages, ok := validationMessages(err); ok {
			response.BadRequest(w, messages)
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	message, err := h.conversationService.PostMessage(r.Context(), owner, input)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			response.Forbidden(w, "conversation belongs to another device")
			return
		}
		response.InternalError(w, err)
		return
	}

	response.Created(w, message)
}
