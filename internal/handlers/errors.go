package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/messages"
	"customer-portal-backend/internal/middleware"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/offer"
	"customer-portal-backend/internal/portal"
)

// respondError maps domain errors to status codes. Anything unexpected is
// logged and answered with the generic fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback
	switch {
	case errors.Is(err, portal.ErrProjectNotFound):
		status, msg = http.StatusNotFound, "project not found"
	case errors.Is(err, portal.ErrFolderNotFound):
		status, msg = http.StatusNotFound, "folder not found"
	case errors.Is(err, portal.ErrFileNotFound):
		status, msg = http.StatusNotFound, "file not found"
	case errors.Is(err, messages.ErrNotFound):
		status, msg = http.StatusNotFound, "message not found"
	case errors.Is(err, portal.ErrActionPending):
		status, msg = http.StatusConflict, "another action on this file is in progress"
	case errors.Is(err, messages.ErrImmutable):
		status, msg = http.StatusConflict, "message can no longer be changed"
	case errors.Is(err, portal.ErrApprovalDisabled),
		errors.Is(err, portal.ErrUploadDisabled),
		errors.Is(err, portal.ErrNotOwner):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, offer.ErrInvalidCart):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid cart", Message: err.Error()})
		return
	case errors.Is(err, messages.ErrEmpty):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.Log.Error(fallback,
			"component", "api",
			"path", c.FullPath(),
			"user_id", middleware.GetUserID(c),
			"error", err)
	}
	c.JSON(status, models.ErrorResponse{Error: msg})
}

func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return "", false
	}
	return userID, true
}
