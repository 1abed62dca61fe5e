package generation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// credentialHeader carries the caller's text-provider key on every generation
// request. The key is forwarded to the provider and never persisted.
const credentialHeader = "x-gemini-api-key"

type textGenerator interface {
	GenerateScript(ctx context.Context, idea, credential string) (*Script, error)
	GenerateCharacters(ctx context.Context, idea, credential string) (*CharacterSheet, error)
	EnhancePrompt(ctx context.Context, idea, credential string) string
}

type imageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) ImageResult
}

// Module bundles the generation clients behind the HTTP routes.
type Module struct {
	text    textGenerator
	images  imageGenerator
	catalog *modelCatalog
}

// RegisterRoutes wires the generation endpoints onto the router. The cache
// client may be nil; validation then always hits the provider.
func RegisterRoutes(router *gin.Engine, store ContentStore, cache *redis.Client) *Module {
	module := &Module{
		text:    NewTextClient(),
		images:  NewImageClient(store),
		catalog: newModelCatalog(cache),
	}

	router.GET("/auth/validate", module.handleValidateCredential)

	group := router.Group("/generate")
	group.POST("/script", module.handleGenerateScript)
	group.POST("/characters", module.handleGenerateCharacters)
	group.POST("/enhance", module.handleEnhancePrompt)
	group.POST("/image", module.handleGenerateImage)

	return module
}

func requestCredential(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(credentialHeader))
}

// writeGenerationError maps the failure taxonomy onto HTTP statuses for the
// script/character paths.
func writeGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "provider quota exceeded, retry later", "code": "quota_exceeded"})
	case errors.Is(err, ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "provider rejected the supplied API key", "code": "invalid_credential"})
	case errors.Is(err, ErrGenerationFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "provider output could not be parsed", "code": "generation_failed"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "text provider unavailable", "code": "provider_unavailable"})
	}
}

func (m *Module) handleValidateCredential(c *gin.Context) {
	credential := requestCredential(c)
	valid := m.ValidateCredential(c.Request.Context(), credential)
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (m *Module) handleGenerateScript(c *gin.Context) {
	credential := requestCredential(c)
	if credential == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + credentialHeader + " header", "code": "invalid_credential"})
		return
	}

	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	idea := req.Prompt
	if req.Enhance {
		idea = m.text.EnhancePrompt(ctx, idea, credential)
	}

	script, err := m.text.GenerateScript(ctx, idea, credential)
	if err != nil {
		log.Info().Err(err).Msg("generation: script request failed")
		writeGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, script)
}

func (m *Module) handleGenerateCharacters(c *gin.Context) {
	credential := requestCredential(c)
	if credential == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + credentialHeader + " header", "code": "invalid_credential"})
		return
	}

	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sheet, err := m.text.GenerateCharacters(c.Request.Context(), req.Prompt, credential)
	if err != nil {
		log.Info().Err(err).Msg("generation: character request failed")
		writeGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, sheet)
}

// handleEnhancePrompt never reports a provider failure: the client degrades to
// echoing the original idea, so the only error surface left is a bad body.
func (m *Module) handleEnhancePrompt(c *gin.Context) {
	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enhanced := m.text.EnhancePrompt(c.Request.Context(), req.Prompt, requestCredential(c))
	c.JSON(http.StatusOK, gin.H{"enhanced_prompt": enhanced})
}

// handleGenerateImage always answers 200 with a tagged result; provider
// failures arrive as status "failed" with a placeholder URL.
func (m *Module) handleGenerateImage(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := m.images.Generate(c.Request.Context(), req)
	c.JSON(http.StatusOK, result)
}
