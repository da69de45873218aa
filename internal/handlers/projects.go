package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/portal"
)

type ProjectsHandler struct {
	directory *portal.Directory
}

func NewProjectsHandler(directory *portal.Directory) *ProjectsHandler {
	return &ProjectsHandler{directory: directory}
}

// ListProjects godoc
// @Summary     List projects
// @Description Returns the projects of the logged-in customer, newest first
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	projects, err := h.directory.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to list projects")
		return
	}

	summaries := make([]models.ProjectSummary, len(projects))
	for i, p := range projects {
		summaries[i] = models.ProjectSummary{ID: p.ID, Name: p.Name, Year: p.Year}
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: summaries})
}

// GetProject godoc
// @Summary     Get project
// @Description Returns a project with the folders visible to the customer
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.ProjectResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	project, err := h.directory.ForCustomer(c.Request.Context(), c.Param("project_id"), userID)
	if err != nil {
		respondError(c, err, "failed to load project")
		return
	}

	c.JSON(http.StatusOK, models.ProjectResponse{
		ID:      project.ID,
		Name:    project.Name,
		Year:    project.Year,
		Folders: folders.Visible(project),
	})
}
