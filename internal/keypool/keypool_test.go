package keypool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyError struct{ msg string }

func (e *fakeKeyError) Error() string    { return e.msg }
func (e *fakeKeyError) KeyFailure() bool { return true }

func TestTryInOrderStopsOnMatch(t *testing.T) {
	pool := New([]string{"A", "B", "C"})

	var tried []string
	err := pool.TryInOrder(func(key string) (bool, error) {
		tried = append(tried, key)
		return key == "B", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tried, "stops at first match")
	assert.Equal(t, []string{"A", "B", "C"}, pool.Keys(), "clean attempts never rotate")
}

func TestTryInOrderRotatesFailedKeyToBack(t *testing.T) {
	pool := New([]string{"A", "B", "C"})

	err := pool.TryInOrder(func(key string) (bool, error) {
		if key == "A" {
			return false, &fakeKeyError{msg: "rate limited"}
		}
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, pool.Keys())
}

func TestTryInOrderNoMatchIsNotAnError(t *testing.T) {
	pool := New([]string{"A", "B"})

	err := pool.TryInOrder(func(key string) (bool, error) {
		return false, nil
	})

	assert.NoError(t, err, "clean attempts with no match are a nil error")
}

func TestTryInOrderAllAttemptsErrored(t *testing.T) {
	pool := New([]string{"A", "B"})

	err := pool.TryInOrder(func(key string) (bool, error) {
		return false, errors.New("boom")
	})

	assert.ErrorIs(t, err, ErrKeysExhausted)
	assert.Equal(t, []string{"A", "B"}, pool.Keys(), "transient errors do not rotate")
}

func TestTryInOrderMixedErrorAndCleanMiss(t *testing.T) {
	pool := New([]string{"A", "B"})

	err := pool.TryInOrder(func(key string) (bool, error) {
		if key == "A" {
			return false, &fakeKeyError{msg: "invalid key"}
		}
		return false, nil
	})

	assert.NoError(t, err, "one clean attempt makes the overall result a clean miss")
	assert.Equal(t, []string{"B", "A"}, pool.Keys())
}

func TestRotationCap(t *testing.T) {
	pool := New([]string{"A", "B"})

	// Cap is 2×len = 4; every attempt fails with a key error.
	for i := 0; i < 5; i++ {
		_ = pool.TryInOrder(func(key string) (bool, error) {
			return false, &fakeKeyError{msg: fmt.Sprintf("fail %d", i)}
		})
	}

	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, pool.maxRotations, pool.rotations, "rotations stop at the cap")
}

func TestEmptyPool(t *testing.T) {
	pool := New(nil)

	err := pool.TryInOrder(func(key string) (bool, error) {
		t.Fatal("fn must not be called for an empty pool")
		return false, nil
	})

	assert.ErrorIs(t, err, ErrKeysExhausted)
}

func TestKeysReturnsCopy(t *testing.T) {
	pool := New([]string{"A", "B"})
	keys := pool.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"A", "B"}, pool.Keys())
}
