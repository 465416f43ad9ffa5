package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	t.Run("short string unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateRunes("hello", 1200))
	})

	t.Run("ascii cut at limit", func(t *testing.T) {
		s := strings.Repeat("a", 2000)
		got := truncateRunes(s, 1200)
		assert.Len(t, got, 1200)
	})

	t.Run("multi-byte rune not split", func(t *testing.T) {
		// "अधिनियम" is three bytes per rune; pad so a rune straddles
		// the byte limit.
		s := strings.Repeat("x", 1199) + "अधिनियम"
		got := truncateRunes(s, 1200)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), 1200)
		assert.Equal(t, strings.Repeat("x", 1199), got)
	})
}
