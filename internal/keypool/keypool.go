// Package keypool manages an ordered list of upstream API keys with
// rotate-on-failure semantics. A pool is owned by a single population run;
// it is not safe for concurrent use and no state survives the run.
package keypool

import (
	"errors"
	"log"
)

// ErrKeysExhausted is returned by TryInOrder when every key attempt failed.
// It is NOT returned when at least one key responded cleanly but produced
// no match; that case is a nil error with no result.
var ErrKeysExhausted = errors.New("keypool: all keys exhausted")

// keyFailer is implemented by upstream client errors that indicate the key
// itself is rate-limited or invalid, as opposed to a transient fetch error.
type keyFailer interface {
	KeyFailure() bool
}

func isKeyFailure(err error) bool {
	var kf keyFailer
	return errors.As(err, &kf) && kf.KeyFailure()
}

// Pool holds API keys in priority order. Keys that fail with a key-level
// error are rotated to the back so healthier keys are tried first on
// subsequent items. Total rotations per pool are capped to bound
// worst-case run latency; once the cap is hit, failing keys keep their
// position and are simply skipped for the current attempt.
type Pool struct {
	keys         []string
	rotations    int
	maxRotations int
}

// New builds a pool over keys in the given order. The rotation cap is
// twice the key count.
func New(keys []string) *Pool {
	copied := make([]string, len(keys))
	copy(copied, keys)
	return &Pool{
		keys:         copied,
		maxRotations: 2 * len(keys),
	}
}

// Len returns the number of keys in the pool.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Keys returns the current key order. The slice is a copy.
func (p *Pool) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// TryInOrder calls fn with each key in current order until fn reports
// done. fn returning (false, nil) means the key worked but produced no
// match: the next key is tried and the overall result is a nil error.
// A key-level failure rotates that key to the back (within the cap); any
// error is swallowed and the next key is tried. When every attempt
// errored, ErrKeysExhausted is returned.
func (p *Pool) TryInOrder(fn func(key string) (bool, error)) error {
	if len(p.keys) == 0 {
		return ErrKeysExhausted
	}

	attempts := p.Keys()
	cleanAttempt := false
	for _, key := range attempts {
		done, err := fn(key)
		if done {
			return nil
		}
		if err == nil {
			cleanAttempt = true
			continue
		}
		if isKeyFailure(err) {
			p.rotateToBack(key)
		}
		log.Printf("keypool: key %s failed: %v", maskKey(key), err)
	}

	if cleanAttempt {
		return nil
	}
	return ErrKeysExhausted
}

func (p *Pool) rotateToBack(key string) {
	if p.rotations >= p.maxRotations {
		return
	}
	for i, k := range p.keys {
		if k == key {
			p.keys = append(append(p.keys[:i], p.keys[i+1:]...), key)
			p.rotations++
			return
		}
	}
}

// maskKey keeps logs useful without leaking credentials.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
