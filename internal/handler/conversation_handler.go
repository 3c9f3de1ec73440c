package handler

import (
	"net/http"
	"strconv"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	service *services.MessagingService
}

func NewConversationHandler(service *services.MessagingService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	other, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant id", "INVALID_REQUEST"))
		return
	}

	var bookingID *string
	if req.BookingID != "" {
		bookingID = &req.BookingID
	}

	conv, created, err := h.service.CreateConversation(c.Request.Context(), caller, other, bookingID, req.InitialMessage)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.FromConversation(conv, caller)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := h.service.List(c.Request.Context(), caller, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.Page[httpdto.ConversationView]{
		Items: httpdto.FromConversations(res.Conversations, caller),
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
	}))
}

// Detail returns one page of history in chronological order. Opening the
// first page marks the caller caught up.
func (h *ConversationHandler) Detail(c *gin.Context) {
	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := h.service.History(c.Request.Context(), caller, conversationID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.Page[httpdto.MessageView]{
		Items: httpdto.FromMessages(res.Messages),
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
	}))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), caller, conversationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"marked": true}))
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, conversationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ConversationHandler) UnreadTotal(c *gin.Context) {
	caller, ok := services.ParticipantFromContext(c.Request.Context())
	if !ok {
		respondError(c, chat_errors.ErrUnauthorized)
		return
	}

	total, err := h.service.UnreadTotal(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadTotalView{Total: total}))
}
