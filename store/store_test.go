package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize("", 10))
	assert.Equal(t, "short", Summarize("short", 10))
	assert.Equal(t, "exactly10!", Summarize("exactly10!", 10))

	long := strings.Repeat("a", 30)
	assert.Equal(t, strings.Repeat("a", 9)+"…", Summarize(long, 10))

	// Rune-safe, not byte-safe.
	assert.Equal(t, "приве…", Summarize("приветствие", 6))

	// Non-positive max means no limit.
	assert.Equal(t, long, Summarize(long, 0))
}
