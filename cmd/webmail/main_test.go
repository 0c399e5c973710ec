package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-9", truncate("exactly-9", 9))
	assert.Equal(t, "long sen…", truncate("long sender name", 9))

	// Multibyte sender names truncate on runes, never mid-sequence.
	got := truncate("Jürgen Müßiggänger", 9)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Jürgen M…", got)
}
