package handler

import (
	"net/http"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	chat_errors "marketplace-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service *services.MessagingService
	uploads *services.UploadService
}

func NewMessageHandler(service *services.MessagingService, uploads *services.UploadService) *MessageHandler {
	return &MessageHandler{service: service, uploads: uploads}
}

// Send accepts multipart form data: a "content" field plus zero or more
// "attachments" file parts. Either may be absent, not both.
func (h *MessageHandler) Send(c *gin.Context) {
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

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid form data", "INVALID_REQUEST"))
		return
	}

	content := c.PostForm("content")

	var replyTo uuid.NullUUID
	if raw := c.PostForm("reply_to_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid reply_to_id", "INVALID_REQUEST"))
			return
		}
		replyTo = uuid.NullUUID{UUID: id, Valid: true}
	}

	// Authorize before the attachment upload so a rejected send never
	// writes to object storage.
	if err := h.service.AuthorizeSend(c.Request.Context(), caller, conversationID); err != nil {
		respondError(c, err)
		return
	}

	attachments, err := h.uploads.ProcessMultipart(c.Request.Context(), form.File["attachments"])
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.service.Send(c.Request.Context(), caller, conversationID, content, attachments, replyTo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}
