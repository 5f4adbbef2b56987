package storage

import (
	"context"
	"strings"
	"testing"

	"farmfi-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Bucket = "farmfi-images"
	cfg.Storage.Region = "ap-south-1"
	cfg.Storage.AccessKeyID = "AKIDEXAMPLE"
	cfg.Storage.SecretAccessKey = "secret"
	cfg.Storage.Endpoint = "http://localhost:9000"
	cfg.Storage.URLExpiryHours = 24
	return cfg
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Bucket = ""

	_, err := NewS3Store(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// Presigning is computed locally, so no server is needed.
func TestPresignGet_PathStyleWithExpiry(t *testing.T) {
	s, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)

	url, err := s.PresignGet(context.Background(), "images/1700000000000_leaf.jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/farmfi-images/images/1700000000000_leaf.jpg"), url)
	assert.Contains(t, url, "X-Amz-Expires=86400")
}
