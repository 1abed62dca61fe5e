package generation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Gemini API keys are "AIza" plus 35 characters. The local check only has
	// to reject obviously malformed input; it must never turn away a key the
	// provider would accept, so the bounds are deliberately loose.
	credentialPrefix    = "AIza"
	credentialMinLength = 30

	validateTimeout = 15 * time.Second
)

// credentialShapeOK is the local, network-free stage of validation. It exists
// purely to avoid spending a round trip on input that cannot be a key.
func credentialShapeOK(credential string) bool {
	trimmed := strings.TrimSpace(credential)
	if trimmed == "" || len(trimmed) < credentialMinLength {
		return false
	}
	return strings.HasPrefix(trimmed, credentialPrefix)
}

// redactCredential reports only the shape of a key, never its value.
func redactCredential(credential string) string {
	trimmed := strings.TrimSpace(credential)
	if len(trimmed) < len(credentialPrefix) {
		return "<short>"
	}
	return trimmed[:len(credentialPrefix)] + "..."
}

// ValidateCredential checks a caller-supplied text-provider key: a cheap local
// shape check first, then an authoritative model-listing call against the
// provider. Any transport or auth failure on the remote stage means false,
// never an error. A valid key with zero visible models still validates; that
// case is only logged as a warning.
func (m *Module) ValidateCredential(ctx context.Context, credential string) bool {
	if !credentialShapeOK(credential) {
		log.Debug().
			Int("length", len(strings.TrimSpace(credential))).
			Msg("generation: credential rejected by local shape check")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	models, err := m.catalog.listModels(ctx, credential)
	if err != nil {
		log.Info().
			Err(err).
			Str("credential", redactCredential(credential)).
			Msg("generation: provider rejected credential")
		return false
	}

	if len(models) == 0 {
		log.Warn().
			Str("credential", redactCredential(credential)).
			Msg("generation: credential valid but provider lists no models")
	}

	return true
}
