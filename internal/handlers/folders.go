package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/portal"
)

const (
	snapshotTimeout = 15 * time.Second
	keepAlive       = 25 * time.Second
)

// PortalHandler resolves the caller's session for a project. Folder, file
// and message handlers build on it.
type PortalHandler struct {
	directory *portal.Directory
	sessions  *portal.Registry
}

func NewPortalHandler(directory *portal.Directory, sessions *portal.Registry) *PortalHandler {
	return &PortalHandler{directory: directory, sessions: sessions}
}

func (h *PortalHandler) session(c *gin.Context) (*portal.Session, string, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return nil, "", false
	}
	project, err := h.directory.ForCustomer(c.Request.Context(), c.Param("project_id"), userID)
	if err != nil {
		respondError(c, err, "failed to load project")
		return nil, "", false
	}
	return h.sessions.Acquire(project, userID), userID, true
}

// ListFiles godoc
// @Summary     List folder files
// @Description Returns the current listing of a project folder with read and approval status
// @Tags        folders
// @Produce     json
// @Security    Bearer
// @Param       project_id path  string true "Project ID"
// @Param       path       query string true "Folder path"
// @Success     200 {object} models.FilesResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/folders/files [get]
func (h *PortalHandler) ListFiles(c *gin.Context) {
	session, userID, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	view, err := session.OpenFolder(ctx, c.Query("path"), userID)
	if err != nil {
		respondError(c, err, "failed to open folder")
		return
	}
	defer view.Close()

	items, err := view.Wait(ctx)
	if err != nil {
		respondError(c, err, "failed to list folder")
		return
	}
	c.JSON(http.StatusOK, models.FilesResponse{FolderPath: view.FolderPath, Files: items})
}

// StreamFiles godoc
// @Summary     Stream folder files
// @Description Server-sent events carrying the full folder listing after every change. Event name "files".
// @Tags        folders
// @Produce     text/event-stream
// @Security    Bearer
// @Param       project_id   path  string true  "Project ID"
// @Param       path         query string true  "Folder path"
// @Param       access_token query string false "Access token for clients that cannot set headers"
// @Success     200 {object} models.FilesResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/folders/stream [get]
func (h *PortalHandler) StreamFiles(c *gin.Context) {
	session, userID, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	view, err := session.OpenFolder(ctx, c.Query("path"), userID)
	if err != nil {
		respondError(c, err, "failed to open folder")
		return
	}
	defer view.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case items, ok := <-view.Updates():
			if !ok {
				return false
			}
			c.SSEvent("files", models.FilesResponse{FolderPath: view.FolderPath, Files: items})
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}
