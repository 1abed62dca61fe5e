package generation

// Panel is a single frame of a generated script. Panel ids are assigned by the
// provider and carried through image generation unchanged so a panel and its
// rendered image stay correlated.
type Panel struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	Dialogue    *string  `json:"dialogue,omitempty"`
	Characters  []string `json:"characters"`
}

// CharacterProfile describes one cast member of a story.
type CharacterProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
	Appearance  string `json:"appearance"`
}

// Script is the structured narrative returned by the text provider.
type Script struct {
	Title      string             `json:"title"`
	Panels     []Panel            `json:"panels"`
	Characters []CharacterProfile `json:"characters,omitempty"`
}

// CharacterSheet is the cast roster returned by the text provider.
type CharacterSheet struct {
	Characters []CharacterProfile `json:"characters"`
}

// StoryRequest carries the user's idea plus generation options.
type StoryRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Enhance  bool   `json:"enhance"`
	ArtStyle string `json:"art_style"`
}

// ImageRequest describes one panel illustration job. Credential is an optional
// caller-supplied image-provider token; when absent the service-operated token
// from the environment is used.
type ImageRequest struct {
	PanelID           int               `json:"panel_id" binding:"required"`
	Description       string            `json:"description" binding:"required"`
	Style             string            `json:"style"`
	ArtStyle          string            `json:"art_style"`
	CharacterProfiles map[string]string `json:"character_profiles,omitempty"`
	PanelCharacters   []string          `json:"panel_characters,omitempty"`
	Credential        string            `json:"hf_token,omitempty"`
}

const (
	// ImageStatusCompleted marks a panel whose bytes were stored successfully.
	ImageStatusCompleted = "completed"
	// ImageStatusFailed marks a panel whose URL points at a placeholder.
	ImageStatusFailed = "failed"
)

// ImageResult is the tagged outcome of an image job. It is always a value, never
// an error: every provider failure mode resolves to StatusFailed with a
// placeholder URL. Rate-limit fields are attached only when the provider
// reported them.
type ImageResult struct {
	PanelID            int    `json:"panel_id"`
	ImageURL           string `json:"image_url"`
	Status             string `json:"status"`
	RateLimitRemaining *int   `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     *int   `json:"rate_limit_reset,omitempty"`
	RateLimitTotal     *int   `json:"rate_limit_total,omitempty"`
}
