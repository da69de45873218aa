package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/messages"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/portal"
)

type MessagesHandler struct {
	directory *portal.Directory
	service   *messages.Service
}

func NewMessagesHandler(directory *portal.Directory, service *messages.Service) *MessagesHandler {
	return &MessagesHandler{directory: directory, service: service}
}

// project checks the caller owns the project in the path.
func (h *MessagesHandler) project(c *gin.Context) (string, string, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return "", "", false
	}
	project, err := h.directory.ForCustomer(c.Request.Context(), c.Param("project_id"), userID)
	if err != nil {
		respondError(c, err, "failed to load project")
		return "", "", false
	}
	return project.ID, userID, true
}

// ListMessages godoc
// @Summary     List messages
// @Description Returns the caller's messages about a project, newest first
// @Tags        messages
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.MessagesResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/messages [get]
func (h *MessagesHandler) ListMessages(c *gin.Context) {
	projectID, userID, ok := h.project(c)
	if !ok {
		return
	}

	list, err := h.service.List(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err, "failed to list messages")
		return
	}
	if list == nil {
		list = []models.CustomerMessage{}
	}
	c.JSON(http.StatusOK, models.MessagesResponse{Messages: list})
}

// CreateMessage godoc
// @Summary     Send message
// @Description Sends a message to the office, optionally about a file. Markup is stripped.
// @Tags        messages
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                      true "Project ID"
// @Param       request    body models.CreateMessageRequest true "Message"
// @Success     201 {object} models.CustomerMessage
// @Failure     400 {object} models.ErrorResponse
// @Router      /projects/{project_id}/messages [post]
func (h *MessagesHandler) CreateMessage(c *gin.Context) {
	projectID, userID, ok := h.project(c)
	if !ok {
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	msg, err := h.service.Create(c.Request.Context(), projectID, userID, req)
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateMessage godoc
// @Summary     Edit message
// @Description Edits a message the office has not processed yet
// @Tags        messages
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                      true "Project ID"
// @Param       message_id path string                      true "Message ID"
// @Param       request    body models.UpdateMessageRequest true "Message"
// @Success     200 {object} models.CustomerMessage
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{project_id}/messages/{message_id} [put]
func (h *MessagesHandler) UpdateMessage(c *gin.Context) {
	projectID, userID, ok := h.project(c)
	if !ok {
		return
	}

	var req models.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	msg, err := h.service.Update(c.Request.Context(), projectID, userID, c.Param("message_id"), req)
	if err != nil {
		respondError(c, err, "failed to update message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary     Delete message
// @Tags        messages
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       message_id path string true "Message ID"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{project_id}/messages/{message_id} [delete]
func (h *MessagesHandler) DeleteMessage(c *gin.Context) {
	projectID, userID, ok := h.project(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), projectID, userID, c.Param("message_id")); err != nil {
		respondError(c, err, "failed to delete message")
		return
	}
	c.Status(http.StatusNoContent)
}
