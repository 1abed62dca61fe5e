package library

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module owns the project library routes.
type Module struct {
	db *gorm.DB
}

// RegisterRoutes migrates the project table and mounts the library endpoints.
func RegisterRoutes(router *gin.Engine, db *gorm.DB) (*Module, error) {
	if err := db.AutoMigrate(&Project{}); err != nil {
		return nil, err
	}

	module := &Module{db: db}

	group := router.Group("/library/projects")
	group.POST("", module.handleSaveProject)
	group.GET("", module.handleListProjects)
	group.GET("/:id", module.handleGetProject)
	group.DELETE("/:id", module.handleDeleteProject)

	return module, nil
}

type saveProjectRequest struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Script     json.RawMessage `json:"script"`
	Characters json.RawMessage `json:"characters"`
	Images     json.RawMessage `json:"images"`
}

// titleFromScript pulls the script document's title when the caller did not
// name the project explicitly.
func titleFromScript(script json.RawMessage) string {
	if len(script) == 0 {
		return ""
	}
	var embedded struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(script, &embedded); err != nil {
		return ""
	}
	return strings.TrimSpace(embedded.Title)
}

func (m *Module) handleSaveProject(c *gin.Context) {
	var req saveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = titleFromScript(req.Script)
	}
	if title == "" {
		title = "Untitled Story"
	}

	project := Project{
		ID:         strings.TrimSpace(req.ID),
		Title:      title,
		Script:     datatypes.JSON(req.Script),
		Characters: datatypes.JSON(req.Characters),
		Images:     datatypes.JSON(req.Images),
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	} else {
		var existing Project
		if err := m.db.Select("created_at").First(&existing, "id = ?", project.ID).Error; err == nil {
			project.CreatedAt = existing.CreatedAt
		}
	}

	if err := m.db.Save(&project).Error; err != nil {
		log.Error().Err(err).Msg("library: save project failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": project.ID})
}

func (m *Module) handleListProjects(c *gin.Context) {
	var projects []Project
	if err := m.db.Order("updated_at DESC").Find(&projects).Error; err != nil {
		log.Error().Err(err).Msg("library: list projects failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, project := range projects {
		summaries = append(summaries, summarize(project))
	}

	c.JSON(http.StatusOK, summaries)
}

func (m *Module) handleGetProject(c *gin.Context) {
	var project Project
	err := m.db.First(&project, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("library: load project failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

func (m *Module) handleDeleteProject(c *gin.Context) {
	result := m.db.Delete(&Project{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("library: delete project failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// summarize flattens a stored project into its listing card: the first panel
// image (by panel id order) becomes the thumbnail.
func summarize(project Project) ProjectSummary {
	summary := ProjectSummary{
		ID:        project.ID,
		Title:     project.Title,
		UpdatedAt: project.UpdatedAt,
	}

	if len(project.Images) == 0 {
		return summary
	}

	var images map[string]string
	if err := json.Unmarshal(project.Images, &images); err != nil || len(images) == 0 {
		return summary
	}

	keys := make([]string, 0, len(images))
	for key := range images {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	thumbnail := images[keys[0]]
	summary.ThumbnailURL = &thumbnail
	summary.PanelCount = len(images)

	return summary
}
