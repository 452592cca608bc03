package syscmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeRunnerReplaysResponse(t *testing.T) {
	f := NewFakeRunner()
	f.OnCommand("pkgutil", Response{Stdout: []byte("<plist/>")})

	stdout, _, err := f.Run(context.Background(), "pkgutil", []string{"--pkg-info-plist", "com.example.foo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<plist/>", string(stdout))
	require.Len(t, f.Invocations, 1)
	assert.Equal(t, "pkgutil", f.Invocations[0].Name)
}

func TestFakeRunnerErrorsOnUnregisteredCommand(t *testing.T) {
	f := NewFakeRunner()
	_, _, err := f.Run(context.Background(), "unknown", nil, nil)
	assert.Error(t, err)
}
