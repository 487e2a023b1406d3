package sioagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:3000/socket.io", cfg.URL)
	require.Equal(t, "/", cfg.Namespace)
	require.False(t, cfg.InsecureSkipVerify)
}

func TestStartRejectsInvalidURL(t *testing.T) {
	a := New(Config{URL: "://not-a-url"}, nil)
	require.Error(t, a.Start(context.Background()))
}
