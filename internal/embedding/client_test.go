package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello"))
	})

	t.Run("exact budget passes through", func(t *testing.T) {
		text := strings.Repeat("a", maxInputChars)
		assert.Equal(t, text, Truncate(text))
	})

	t.Run("long text is cut to the budget", func(t *testing.T) {
		text := strings.Repeat("a", maxInputChars+1000)
		got := Truncate(text)
		assert.Len(t, got, maxInputChars)
	})

	t.Run("deterministic", func(t *testing.T) {
		text := strings.Repeat("xyz", maxInputChars)
		assert.Equal(t, Truncate(text), Truncate(text))
	})
}
