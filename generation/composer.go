package generation

import (
	"sort"
	"strings"
)

// Style templates keyed by art_style tag. Unknown tags fall back to manga.
var styleTemplates = map[string]string{
	"manga":      "japanese manga style, black and white, screentone shading, dynamic panel composition",
	"shonen":     "shonen manga style, bold ink lines, high-energy action framing, dramatic speed lines",
	"shojo":      "shojo manga style, delicate linework, sparkling highlights, soft floral accents",
	"seinen":     "seinen manga style, gritty realistic shading, heavy blacks, cinematic atmosphere",
	"cyberpunk":  "cyberpunk manga style, neon-lit cityscape accents, high-tech detail, stark contrast",
	"watercolor": "watercolor illustration style, soft washes, visible brush texture, muted palette",
	"horror":     "horror manga style, unsettling hatching, deep shadows, distorted perspective",
}

const defaultArtStyle = "manga"

const (
	previewModifier = "rough sketch, loose linework, monochrome draft"
	finalModifier   = "masterpiece, highly detailed, clean inking, professional quality"

	// One negative prompt accompanies every image request regardless of style.
	negativePrompt = "blurry, color bleed, washed out, malformed anatomy, extra fingers, deformed hands, watermark, signature, text artifacts"

	// Hard cap on the joined character-context string, ellipsis included.
	maxCharacterContextLen = 400
	contextEllipsis        = "..."
)

// scriptSystemInstruction pins the exact output schema the text client parses.
// The appearance-variety clause is a content contract: without it the model
// tends to produce visually interchangeable casts.
const scriptSystemInstruction = `You are a professional manga script writer. ` +
	`Turn the user's story idea into a one-chapter manga script. ` +
	`Respond with a single JSON object and nothing else, using exactly this shape: ` +
	`{"title": string, "panels": [{"id": integer starting at 1 and strictly increasing, ` +
	`"description": string describing the visual scene, "dialogue": string or null, ` +
	`"characters": [character names appearing in the panel]}], ` +
	`"characters": [{"name": string, "description": string, "personality": string, "appearance": string}]}. ` +
	`Write 5 to 8 panels. Give every character a visually distinct appearance: vary hair style and color, ` +
	`eye shape, clothing and overall silhouette so no two characters could be mistaken for each other.`

const characterSystemInstruction = `You are a character designer for manga. ` +
	`From the user's story idea, design the main cast. ` +
	`Respond with a single JSON object and nothing else, using exactly this shape: ` +
	`{"characters": [{"name": string, "description": string, "personality": string, "appearance": string}]}. ` +
	`Design 2 to 5 characters. Appearances must be visually distinct from one another: ` +
	`vary hair, eyes, clothing and silhouette so every character is recognizable at a glance.`

const enhanceSystemInstruction = `You rewrite story prompts. Expand the user's idea into a richer ` +
	`one-paragraph story premise with concrete setting, stakes and tone. ` +
	`Respond with the rewritten premise only, no preamble and no formatting.`

// styleTemplate resolves an art_style tag case-insensitively, falling back to
// the manga template for anything unknown. Never an error.
func styleTemplate(artStyle string) string {
	key := strings.ToLower(strings.TrimSpace(artStyle))
	if tpl, ok := styleTemplates[key]; ok {
		return tpl
	}
	return styleTemplates[defaultArtStyle]
}

// normalizeName lowercases and collapses whitespace for fuzzy profile matching.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// buildCharacterContext joins "name: description" pairs for the characters in a
// panel. Names resolve against profiles exact-first, then case-insensitive and
// whitespace-normalized; names with no profile are skipped. The joined string
// is hard-truncated to maxCharacterContextLen runes so character-heavy panels
// cannot blow up the prompt. Truncation is deterministic.
func buildCharacterContext(profiles map[string]string, panelCharacters []string) string {
	if len(profiles) == 0 {
		return ""
	}

	names := panelCharacters
	if len(names) == 0 {
		names = make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	normalized := make(map[string]string, len(profiles))
	for name, desc := range profiles {
		normalized[normalizeName(name)] = name + ": " + desc
	}

	parts := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		var pair string
		if desc, ok := profiles[name]; ok {
			pair = name + ": " + desc
		} else if p, ok := normalized[normalizeName(name)]; ok {
			pair = p
		} else {
			continue
		}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		parts = append(parts, pair)
	}

	joined := strings.Join(parts, "; ")
	runes := []rune(joined)
	if len(runes) <= maxCharacterContextLen {
		return joined
	}
	cut := maxCharacterContextLen - len(contextEllipsis)
	return string(runes[:cut]) + contextEllipsis
}

// composeImagePrompt assembles the full positive prompt for one panel: style
// template, resolved character context, the panel description, and the quality
// modifier matching the requested render style.
func composeImagePrompt(req ImageRequest) string {
	segments := []string{styleTemplate(req.ArtStyle)}

	if context := buildCharacterContext(req.CharacterProfiles, req.PanelCharacters); context != "" {
		segments = append(segments, context)
	}

	if desc := strings.TrimSpace(req.Description); desc != "" {
		segments = append(segments, desc)
	}

	if strings.EqualFold(strings.TrimSpace(req.Style), "final") {
		segments = append(segments, finalModifier)
	} else {
		segments = append(segments, previewModifier)
	}

	return strings.Join(segments, ", ")
}
