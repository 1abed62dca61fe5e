package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

const validScriptJSON = `{
	"title": "The Legend of the Hooded Figure",
	"panels": [
		{"id": 1, "description": "A dark alleyway, rain pouring down.", "dialogue": "...", "characters": ["Hooded Figure"]},
		{"id": 2, "description": "Close up on glowing red eyes.", "dialogue": null, "characters": ["Hooded Figure"]},
		{"id": 3, "description": "Lightning illuminates a castle.", "characters": []}
	]
}`

func stubTextClient(raw string, err error) *TextClient {
	c := NewTextClient()
	c.generate = func(context.Context, string, string, *genai.Schema, string) (string, error) {
		return raw, err
	}
	return c
}

func TestGenerateScript(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		providerErr error
		wantErr     error
		wantPanels  int
	}{
		{
			name:       "valid script",
			raw:        validScriptJSON,
			wantPanels: 3,
		},
		{
			name:       "fenced script is stripped before parsing",
			raw:        "```json\n" + validScriptJSON + "\n```",
			wantPanels: 3,
		},
		{
			name:    "malformed JSON is a generation failure",
			raw:     `{"title": "broken`,
			wantErr: ErrGenerationFailed,
		},
		{
			name:    "unknown field is a generation failure",
			raw:     `{"title": "t", "panels": [], "surprise": true}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name:    "missing panels is a generation failure",
			raw:     `{"title": "t", "panels": []}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name: "duplicate panel ids are a generation failure",
			raw: `{"title": "t", "panels": [
				{"id": 1, "description": "a", "characters": []},
				{"id": 1, "description": "b", "characters": []}
			]}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name: "non positive panel id is a generation failure",
			raw: `{"title": "t", "panels": [
				{"id": 0, "description": "a", "characters": []}
			]}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name:        "quota error maps to quota exceeded",
			providerErr: &googleapi.Error{Code: 429, Message: "resource exhausted"},
			wantErr:     ErrQuotaExceeded,
		},
		{
			name:        "forbidden maps to invalid credential",
			providerErr: &googleapi.Error{Code: 403, Message: "key not authorized"},
			wantErr:     ErrInvalidCredential,
		},
		{
			name:        "server error maps to provider unavailable",
			providerErr: &googleapi.Error{Code: 503, Message: "backend overloaded"},
			wantErr:     ErrProviderUnavailable,
		},
		{
			name:        "transport error maps to provider unavailable",
			providerErr: errors.New("dial tcp: connection refused"),
			wantErr:     ErrProviderUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := stubTextClient(tc.raw, tc.providerErr)

			script, err := c.GenerateScript(context.Background(), "a noir mystery", "AIzaTestKey")
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				for _, other := range []error{ErrQuotaExceeded, ErrInvalidCredential, ErrGenerationFailed, ErrProviderUnavailable} {
					if other != tc.wantErr {
						assert.NotErrorIs(t, err, other)
					}
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "The Legend of the Hooded Figure", script.Title)
			assert.Len(t, script.Panels, tc.wantPanels)
			assert.Equal(t, 1, script.Panels[0].ID)
		})
	}
}

func TestGenerateCharacters(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name: "valid sheet",
			raw: `{"characters": [
				{"name": "Hooded Figure", "description": "mysterious", "personality": "stoic", "appearance": "black cloak"},
				{"name": "The Detective", "description": "weary", "personality": "cynical", "appearance": "trench coat"}
			]}`,
		},
		{
			name:    "empty sheet is a generation failure",
			raw:     `{"characters": []}`,
			wantErr: ErrGenerationFailed,
		},
		{
			name:    "nameless profile is a generation failure",
			raw:     `{"characters": [{"name": " ", "description": "d", "personality": "p", "appearance": "a"}]}`,
			wantErr: ErrGenerationFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := stubTextClient(tc.raw, nil)

			sheet, err := c.GenerateCharacters(context.Background(), "a noir mystery", "AIzaTestKey")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, sheet.Characters, 2)
			assert.Equal(t, "Hooded Figure", sheet.Characters[0].Name)
		})
	}
}

func TestEnhancePrompt(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		providerErr error
		want        string
	}{
		{
			name: "enhanced text is returned",
			raw:  "A rain-soaked noir mystery in a city of shadows.",
			want: "A rain-soaked noir mystery in a city of shadows.",
		},
		{
			name:        "provider error degrades to original idea",
			providerErr: errors.New("connection reset by peer"),
			want:        "a noir mystery",
		},
		{
			name: "blank response degrades to original idea",
			raw:  "   ",
			want: "a noir mystery",
		},
		{
			name: "fences are stripped",
			raw:  "```\nA richer premise.\n```",
			want: "A richer premise.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := stubTextClient(tc.raw, tc.providerErr)
			got := c.EnhancePrompt(context.Background(), "a noir mystery", "AIzaTestKey")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no fences", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "padded", raw: "  ```json\n{\"a\":1}\n```  ", want: `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripFences(tc.raw))
		})
	}
}
