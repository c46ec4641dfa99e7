package handlers

import (
	"net/http"

	"github.com/Friiyous/reseau-social/internal/api/middleware"
	"github.com/Friiyous/reseau-social/internal/messaging"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required,max=4000"`
}

// ConversationListResponse represents the inbox response.
type ConversationListResponse struct {
	Conversations []messaging.ConversationView `json:"conversations"`
}

// MarkReadResponse reports how many messages were flipped to read.
type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

// UnreadCountResponse carries an unread counter.
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// SendMessage handles sending a direct message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sender := middleware.GetUserFromContext(r.Context())
	if sender == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.messages.Send(r.Context(), sender.ID, req.ReceiverID, req.Content)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// ListConversations handles fetching the authenticated user's inbox.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	convs, err := h.messages.ListConversations(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, ConversationListResponse{Conversations: convs})
}

// GetConversation returns one conversation with its history. Messages
// addressed to the caller are marked read as a side effect.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	convID, ok := idParam(r, "id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid conversation ID format")
		return
	}

	detail, err := h.messages.OpenConversation(r.Context(), user.ID, convID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, detail)
}

// MarkConversationRead marks the caller's unread messages in a
// conversation as read without fetching the history.
func (h *Handler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	convID, ok := idParam(r, "id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid conversation ID format")
		return
	}

	marked, err := h.messages.MarkConversationReadByID(r.Context(), user.ID, convID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, MarkReadResponse{Marked: marked})
}

// UnreadMessages returns the caller's unread message count.
func (h *Handler) UnreadMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.messages.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// MessageHistory returns every message the caller sent or received.
func (h *Handler) MessageHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	history, err := h.messages.HistoryForUser(r.Context(), user.ID)
	if err != nil {
		h.AppError(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{"messages": history})
}
