package generation

import "errors"

// Failure categories for script/character/enhance generation. Callers branch on
// these with errors.Is; everything else wrapping them stays free-form text.
var (
	// ErrInvalidCredential covers malformed keys and keys the provider rejects.
	ErrInvalidCredential = errors.New("invalid provider credential")
	// ErrQuotaExceeded is reported when the provider signals resource
	// exhaustion. Distinguished so callers can back off instead of retrying.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrGenerationFailed means the provider answered but the payload could not
	// be parsed into the documented structure.
	ErrGenerationFailed = errors.New("generation output could not be parsed")
	// ErrProviderUnavailable covers transport failures, timeouts and 5xx.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrConfigurationMissing means no image-provider credential was available
	// from either the caller or the environment.
	ErrConfigurationMissing = errors.New("no image provider credential configured")
)
