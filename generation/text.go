package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultTextModelID = "gemini-2.0-flash"
	textTimeout        = 60 * time.Second
)

// TextClient talks to the text-generation provider. Every call builds a
// provider client from the caller's credential; no provider state is shared
// across requests.
type TextClient struct {
	modelID string

	// generate is swapped out in tests; the default issues a real provider call.
	generate func(ctx context.Context, credential, system string, schema *genai.Schema, idea string) (string, error)
}

// NewTextClient reads the target model from GEMINI_MODEL_ID, defaulting to a
// broadly available flash model.
func NewTextClient() *TextClient {
	modelID := strings.TrimSpace(os.Getenv("GEMINI_MODEL_ID"))
	if modelID == "" {
		modelID = defaultTextModelID
	}
	c := &TextClient{modelID: modelID}
	c.generate = c.generateContent
	return c
}

var scriptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString},
		"panels": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":          {Type: genai.TypeInteger},
					"description": {Type: genai.TypeString},
					"dialogue":    {Type: genai.TypeString, Nullable: true},
					"characters":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"id", "description", "characters"},
			},
		},
		"characters": {Type: genai.TypeArray, Items: characterProfileSchema},
	},
	Required: []string{"title", "panels"},
}

var characterSheetSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"characters": {Type: genai.TypeArray, Items: characterProfileSchema},
	},
	Required: []string{"characters"},
}

var characterProfileSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":        {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"personality": {Type: genai.TypeString},
		"appearance":  {Type: genai.TypeString},
	},
	Required: []string{"name", "description", "personality", "appearance"},
}

// GenerateScript turns a story idea into a structured script. Parse failures
// surface as ErrGenerationFailed: a malformed script must not reach image
// generation.
func (c *TextClient) GenerateScript(ctx context.Context, idea, credential string) (*Script, error) {
	raw, err := c.generate(ctx, credential, scriptSystemInstruction, scriptSchema, idea)
	if err != nil {
		return nil, mapProviderError(err)
	}

	script, err := decodeScript(raw)
	if err != nil {
		log.Info().Err(err).Msg("generation: script response failed schema validation")
		return nil, err
	}
	return script, nil
}

// GenerateCharacters designs a cast for a story idea.
func (c *TextClient) GenerateCharacters(ctx context.Context, idea, credential string) (*CharacterSheet, error) {
	raw, err := c.generate(ctx, credential, characterSystemInstruction, characterSheetSchema, idea)
	if err != nil {
		return nil, mapProviderError(err)
	}

	sheet, err := decodeCharacterSheet(raw)
	if err != nil {
		log.Info().Err(err).Msg("generation: character response failed schema validation")
		return nil, err
	}
	return sheet, nil
}

// EnhancePrompt rewrites a story idea into a richer premise. This endpoint is
// advisory only: any provider failure degrades to returning the idea unchanged.
func (c *TextClient) EnhancePrompt(ctx context.Context, idea, credential string) string {
	raw, err := c.generate(ctx, credential, enhanceSystemInstruction, nil, idea)
	if err != nil {
		log.Info().Err(err).Msg("generation: prompt enhancement failed, returning original")
		return idea
	}

	enhanced := strings.TrimSpace(stripFences(raw))
	if enhanced == "" {
		return idea
	}
	return enhanced
}

// generateContent issues one structured generation call with a client scoped to
// the caller's credential.
func (c *TextClient) generateContent(ctx context.Context, credential, system string, schema *genai.Schema, idea string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, textTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(credential))
	if err != nil {
		return "", fmt.Errorf("generation: create provider client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.modelID)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
	}

	resp, err := model.GenerateContent(ctx, genai.Text(idea))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from provider: %w", ErrGenerationFailed)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part from provider: %w", ErrGenerationFailed)
	}

	return string(text), nil
}

// stripFences removes markdown code fences some models wrap around JSON even
// when asked for a bare object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func decodeScript(raw string) (*Script, error) {
	var script Script
	if err := decodeStrict(stripFences(raw), &script); err != nil {
		return nil, fmt.Errorf("decode script: %v: %w", err, ErrGenerationFailed)
	}

	if strings.TrimSpace(script.Title) == "" || len(script.Panels) == 0 {
		return nil, fmt.Errorf("script missing title or panels: %w", ErrGenerationFailed)
	}

	seen := make(map[int]struct{}, len(script.Panels))
	for _, panel := range script.Panels {
		if panel.ID <= 0 {
			return nil, fmt.Errorf("panel id %d is not positive: %w", panel.ID, ErrGenerationFailed)
		}
		if _, dup := seen[panel.ID]; dup {
			return nil, fmt.Errorf("duplicate panel id %d: %w", panel.ID, ErrGenerationFailed)
		}
		seen[panel.ID] = struct{}{}
		if strings.TrimSpace(panel.Description) == "" {
			return nil, fmt.Errorf("panel %d has no description: %w", panel.ID, ErrGenerationFailed)
		}
	}

	return &script, nil
}

func decodeCharacterSheet(raw string) (*CharacterSheet, error) {
	var sheet CharacterSheet
	if err := decodeStrict(stripFences(raw), &sheet); err != nil {
		return nil, fmt.Errorf("decode character sheet: %v: %w", err, ErrGenerationFailed)
	}

	if len(sheet.Characters) == 0 {
		return nil, fmt.Errorf("character sheet is empty: %w", ErrGenerationFailed)
	}
	for _, profile := range sheet.Characters {
		if strings.TrimSpace(profile.Name) == "" {
			return nil, fmt.Errorf("character profile missing name: %w", ErrGenerationFailed)
		}
	}

	return &sheet, nil
}

// decodeStrict rejects unknown fields so a provider drifting from the
// documented shape fails loudly instead of half-filling the structs.
func decodeStrict(raw string, target any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	return nil
}

// mapProviderError folds provider transport and API errors into the failure
// taxonomy. Quota exhaustion keeps its own category so callers can back off.
func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGenerationFailed) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return fmt.Errorf("%v: %w", err, ErrQuotaExceeded)
		case gerr.Code == 400 || gerr.Code == 401 || gerr.Code == 403:
			return fmt.Errorf("%v: %w", err, ErrInvalidCredential)
		default:
			return fmt.Errorf("%v: %w", err, ErrProviderUnavailable)
		}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return fmt.Errorf("%v: %w", err, ErrQuotaExceeded)
		case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument:
			return fmt.Errorf("%v: %w", err, ErrInvalidCredential)
		}
	}

	return fmt.Errorf("%v: %w", err, ErrProviderUnavailable)
}
