package generation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultImageAPIBase = "https://api-inference.huggingface.co"
	defaultImageModelID = "stabilityai/stable-diffusion-xl-base-1.0"

	imageTimeout = 90 * time.Second

	// Placeholder URLs returned in place of an image, one per failure
	// category so the caller can render a matching message without parsing
	// error text.
	placeholderMissingCredential = "https://placehold.co/600x800?text=Image+Provider+Not+Configured"
	placeholderRateLimited       = "https://placehold.co/600x800?text=Rate+Limit+Reached"
	placeholderGenericError      = "https://placehold.co/600x800?text=Generation+Failed"
	placeholderSystemError       = "https://placehold.co/600x800?text=System+Error"
)

// Rate-limit telemetry headers reported by the image provider.
const (
	headerRateLimitRemaining = "x-ratelimit-remaining"
	headerRateLimitReset     = "x-ratelimit-reset"
	headerRateLimitLimit     = "x-ratelimit-limit"
)

// ContentStore persists image bytes and hands back a retrievable URL.
type ContentStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// ImageClient talks to the image-diffusion provider. Its Generate method never
// returns an error: every failure mode folds into an ImageResult with
// StatusFailed and a category-specific placeholder URL.
type ImageClient struct {
	httpClient   *http.Client
	baseURL      string
	modelID      string
	serviceToken string
	store        ContentStore
}

// NewImageClient configures the client from HF_API_BASE, HF_MODEL_ID and the
// service-operated HUGGING_FACE_TOKEN fallback.
func NewImageClient(store ContentStore) *ImageClient {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("HF_API_BASE")), "/")
	if baseURL == "" {
		baseURL = defaultImageAPIBase
	}
	modelID := strings.TrimSpace(os.Getenv("HF_MODEL_ID"))
	if modelID == "" {
		modelID = defaultImageModelID
	}

	return &ImageClient{
		httpClient:   &http.Client{Timeout: imageTimeout},
		baseURL:      baseURL,
		modelID:      modelID,
		serviceToken: strings.TrimSpace(os.Getenv("HUGGING_FACE_TOKEN")),
		store:        store,
	}
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	NegativePrompt string `json:"negative_prompt"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// imageFilename derives a deterministic destination name from the panel id and
// a hash of the description, so identical requests land on the same object and
// different descriptions for the same panel never collide.
func imageFilename(panelID int, description string) string {
	sum := sha256.Sum256([]byte(description))
	return fmt.Sprintf("panel_%d_%x.png", panelID, sum[:4])
}

func failedResult(panelID int, placeholder string) ImageResult {
	return ImageResult{PanelID: panelID, ImageURL: placeholder, Status: ImageStatusFailed}
}

// parseRateLimitHeader reads one telemetry header as an integer. Missing or
// non-numeric values are simply absent, never an error.
func parseRateLimitHeader(header http.Header, name string) *int {
	raw := strings.TrimSpace(header.Get(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

func attachTelemetry(result *ImageResult, header http.Header) {
	result.RateLimitRemaining = parseRateLimitHeader(header, headerRateLimitRemaining)
	result.RateLimitReset = parseRateLimitHeader(header, headerRateLimitReset)
	result.RateLimitTotal = parseRateLimitHeader(header, headerRateLimitLimit)
}

// Generate renders one panel. Credential order: caller-supplied token, then the
// service token; with neither present no network call is attempted.
func (c *ImageClient) Generate(ctx context.Context, req ImageRequest) ImageResult {
	token := strings.TrimSpace(req.Credential)
	if token == "" {
		token = c.serviceToken
	}
	if token == "" {
		log.Warn().Err(ErrConfigurationMissing).Int("panel_id", req.PanelID).Msg("generation: image request rejected")
		return failedResult(req.PanelID, placeholderMissingCredential)
	}

	prompt := composeImagePrompt(req)

	payload := &bytes.Buffer{}
	if err := json.NewEncoder(payload).Encode(inferenceRequest{
		Inputs:     prompt,
		Parameters: inferenceParameters{NegativePrompt: negativePrompt},
		Options:    inferenceOptions{WaitForModel: true},
	}); err != nil {
		log.Error().Err(err).Int("panel_id", req.PanelID).Msg("generation: encode image request failed")
		return failedResult(req.PanelID, placeholderSystemError)
	}

	endpoint := c.baseURL + "/models/" + c.modelID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		log.Error().Err(err).Int("panel_id", req.PanelID).Msg("generation: create image request failed")
		return failedResult(req.PanelID, placeholderSystemError)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Int("panel_id", req.PanelID).Msg("generation: image provider transport error")
		return failedResult(req.PanelID, placeholderSystemError)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Warn().Err(err).Int("panel_id", req.PanelID).Msg("generation: read image bytes failed")
			return failedResult(req.PanelID, placeholderSystemError)
		}

		url, err := c.store.Save(ctx, imageFilename(req.PanelID, req.Description), data)
		if err != nil {
			log.Error().Err(err).Int("panel_id", req.PanelID).Msg("generation: store image bytes failed")
			result := failedResult(req.PanelID, placeholderGenericError)
			attachTelemetry(&result, resp.Header)
			return result
		}

		result := ImageResult{PanelID: req.PanelID, ImageURL: url, Status: ImageStatusCompleted}
		attachTelemetry(&result, resp.Header)
		return result

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		log.Warn().Int("panel_id", req.PanelID).Int("status", resp.StatusCode).
			Msg("generation: image provider reported rate limit")
		result := failedResult(req.PanelID, placeholderRateLimited)
		attachTelemetry(&result, resp.Header)
		return result

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		log.Warn().Int("panel_id", req.PanelID).Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(snippet))).
			Msg("generation: image provider returned error status")
		result := failedResult(req.PanelID, placeholderGenericError)
		attachTelemetry(&result, resp.Header)
		return result
	}
}
