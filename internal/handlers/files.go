package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/portal"
)

const (
	maxUploadBytes = 25 << 20
	maxUploadFiles = 20
)

type fileActionRequest struct {
	Path string `json:"path" form:"path" binding:"required"`
}

type fileAction func(*portal.Session, context.Context, portal.FileRef) (portal.ActionResult, error)

func (h *PortalHandler) fileAction(c *gin.Context, act fileAction) {
	session, userID, ok := h.session(c)
	if !ok {
		return
	}

	var req fileActionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "folder path is required"})
		return
	}

	res, err := act(session, c.Request.Context(), portal.FileRef{
		FolderPath: req.Path,
		PublicID:   c.Param("public_id"),
		UserID:     userID,
	})
	if err != nil {
		respondError(c, err, "failed to update file")
		return
	}
	c.JSON(http.StatusOK, models.FileActionResponse{File: &res.File, URL: res.URL})
}

// MarkAsRead godoc
// @Summary     Mark file as read
// @Tags        files
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                     true "Project ID"
// @Param       public_id  path string                     true "Media public id, URL-escaped"
// @Param       request    body handlers.fileActionRequest true "Folder of the file"
// @Success     200 {object} models.FileActionResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files/{public_id}/read [post]
func (h *PortalHandler) MarkAsRead(c *gin.Context) {
	h.fileAction(c, (*portal.Session).MarkAsRead)
}

// Approve godoc
// @Summary     Approve report
// @Description Marks the file read and approved. Only files in report folders can be approved.
// @Tags        files
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                     true "Project ID"
// @Param       public_id  path string                     true "Media public id, URL-escaped"
// @Param       request    body handlers.fileActionRequest true "Folder of the file"
// @Success     200 {object} models.FileActionResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files/{public_id}/approve [post]
func (h *PortalHandler) Approve(c *gin.Context) {
	h.fileAction(c, (*portal.Session).Approve)
}

// View godoc
// @Summary     View file
// @Description Marks the file read and returns its inline URL
// @Tags        files
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                     true "Project ID"
// @Param       public_id  path string                     true "Media public id, URL-escaped"
// @Param       request    body handlers.fileActionRequest true "Folder of the file"
// @Success     200 {object} models.FileActionResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files/{public_id}/view [post]
func (h *PortalHandler) View(c *gin.Context) {
	h.fileAction(c, (*portal.Session).View)
}

// Download godoc
// @Summary     Download file
// @Description Marks the file read and returns a URL that downloads it as an attachment
// @Tags        files
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string                     true "Project ID"
// @Param       public_id  path string                     true "Media public id, URL-escaped"
// @Param       request    body handlers.fileActionRequest true "Folder of the file"
// @Success     200 {object} models.FileActionResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files/{public_id}/download [post]
func (h *PortalHandler) Download(c *gin.Context) {
	h.fileAction(c, (*portal.Session).Download)
}

// Upload godoc
// @Summary     Upload files
// @Description Uploads files into an upload-enabled folder. Files are processed independently.
// @Tags        files
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       project_id path     string true "Project ID"
// @Param       path       formData string true "Folder path"
// @Param       files      formData file   true "Files"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files [post]
func (h *PortalHandler) Upload(c *gin.Context) {
	session, userID, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no files provided"})
		return
	}
	if len(headers) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("at most %d files per upload", maxUploadFiles)})
		return
	}

	files := make([]portal.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid file", Message: err.Error()})
			return
		}
		files = append(files, f)
	}

	records, errs, err := session.Upload(c.Request.Context(), c.PostForm("path"), userID, files)
	if err != nil {
		respondError(c, err, "failed to upload files")
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to upload files"})
		return
	}

	resp := models.UploadResponse{Files: records}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteFile godoc
// @Summary     Delete file
// @Description Deletes one of the customer's own uploads
// @Tags        files
// @Produce     json
// @Security    Bearer
// @Param       project_id path  string true "Project ID"
// @Param       public_id  path  string true "Media public id, URL-escaped"
// @Param       path       query string true "Folder path"
// @Success     204
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/files/{public_id} [delete]
func (h *PortalHandler) DeleteFile(c *gin.Context) {
	session, userID, ok := h.session(c)
	if !ok {
		return
	}

	err := session.DeleteFile(c.Request.Context(), portal.FileRef{
		FolderPath: c.Query("path"),
		PublicID:   c.Param("public_id"),
		UserID:     userID,
	})
	if err != nil {
		respondError(c, err, "failed to delete file")
		return
	}
	c.Status(http.StatusNoContent)
}

func readUpload(fh *multipart.FileHeader) (portal.UploadFile, error) {
	if fh.Size > maxUploadBytes {
		return portal.UploadFile{}, fmt.Errorf("%s exceeds %d MB", fh.Filename, maxUploadBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return portal.UploadFile{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return portal.UploadFile{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	if len(data) > maxUploadBytes {
		return portal.UploadFile{}, fmt.Errorf("%s exceeds %d MB", fh.Filename, maxUploadBytes>>20)
	}
	return portal.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
