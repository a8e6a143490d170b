package services

import "fmt"

// KeyError marks an upstream failure attributable to the API key itself
// (rate-limited, invalid, or revoked) rather than to the request. The key
// pool rotates keys that fail this way.
type KeyError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: key rejected (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// KeyFailure satisfies the key pool's failure classifier.
func (e *KeyError) KeyFailure() bool { return true }
