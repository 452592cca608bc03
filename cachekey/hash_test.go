package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("https://x.example/repo/", "stable")
	b := Hash("https://x.example/repo/", "stable")
	assert.Equal(t, a, b)
}

func TestHashChangesWithChannel(t *testing.T) {
	stable := Hash("https://x.example/repo/", "stable")
	beta := Hash("https://x.example/repo/", "beta")
	assert.NotEqual(t, stable, beta)
}
