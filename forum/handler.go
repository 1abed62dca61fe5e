package forum

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Module owns the forum routes.
type Module struct {
	db *gorm.DB
}

// RegisterRoutes migrates the forum tables and mounts the endpoints.
func RegisterRoutes(router *gin.Engine, db *gorm.DB) (*Module, error) {
	if err := db.AutoMigrate(&Post{}, &Comment{}); err != nil {
		return nil, err
	}

	module := &Module{db: db}

	group := router.Group("/forum/posts")
	group.POST("", module.handleCreatePost)
	group.GET("", module.handleListPosts)
	group.GET("/:id", module.handleGetPost)
	group.POST("/:id/comments", module.handleAddComment)
	group.POST("/:id/like", module.handleLikePost)

	return module, nil
}

type createPostRequest struct {
	Title             string  `json:"title" binding:"required"`
	Content           string  `json:"content"`
	Author            string  `json:"author" binding:"required"`
	AttachedProjectID *string `json:"attached_project_id"`
}

type createCommentRequest struct {
	Content string `json:"content" binding:"required"`
	Author  string `json:"author" binding:"required"`
}

func (m *Module) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := Post{
		ID:                uuid.NewString(),
		Title:             strings.TrimSpace(req.Title),
		Content:           req.Content,
		Author:            strings.TrimSpace(req.Author),
		AttachedProjectID: req.AttachedProjectID,
		Comments:          []Comment{},
	}

	if err := m.db.Create(&post).Error; err != nil {
		log.Error().Err(err).Msg("forum: create post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (m *Module) handleListPosts(c *gin.Context) {
	var posts []Post
	err := m.db.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Order("created_at DESC").Find(&posts).Error
	if err != nil {
		log.Error().Err(err).Msg("forum: list posts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}

	for i := range posts {
		if posts[i].Comments == nil {
			posts[i].Comments = []Comment{}
		}
	}

	c.JSON(http.StatusOK, posts)
}

func (m *Module) handleGetPost(c *gin.Context) {
	var post Post
	err := m.db.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&post, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("forum: load post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	if post.Comments == nil {
		post.Comments = []Comment{}
	}

	c.JSON(http.StatusOK, post)
}

func (m *Module) handleAddComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	postID := c.Param("id")
	var exists int64
	if err := m.db.Model(&Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		log.Error().Err(err).Msg("forum: check post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add comment"})
		return
	}
	if exists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	comment := Comment{
		ID:      uuid.NewString(),
		PostID:  postID,
		Content: req.Content,
		Author:  strings.TrimSpace(req.Author),
	}

	if err := m.db.Create(&comment).Error; err != nil {
		log.Error().Err(err).Msg("forum: create comment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (m *Module) handleLikePost(c *gin.Context) {
	result := m.db.Model(&Post{}).Where("id = ?", c.Param("id")).
		UpdateColumn("likes", gorm.Expr("likes + 1"))
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("forum: like post failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to like post"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	var likes int64
	if err := m.db.Model(&Post{}).Where("id = ?", c.Param("id")).Pluck("likes", &likes).Error; err != nil {
		log.Error().Err(err).Msg("forum: read likes failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to like post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"likes": likes})
}
