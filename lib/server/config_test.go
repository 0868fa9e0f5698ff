package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "local",
			input: `{"type": "local", "path": "/sync"}`,
		},
		{
			name: "aws with access key",
			input: `{"type": "aws", "region": "eu-central-1", "bucket": "b",
				"encryption_secret": "s",
				"credentials": {"type": "access_key", "access_key_id": "id", "secret_access_key": "key"}}`,
		},
		{
			name: "aws with profile",
			input: `{"type": "aws", "region": "eu-central-1", "bucket": "b",
				"encryption_secret": "s",
				"credentials": {"type": "profile", "profile_name": "work"}}`,
		},
		{
			name: "aws with default credentials",
			input: `{"type": "aws", "region": "eu-central-1", "bucket": "b",
				"encryption_secret": "s", "credentials": {"type": "default"}}`,
		},
		{
			name:    "not json",
			input:   `{`,
			wantErr: "invalid JSON",
		},
		{
			name:    "missing type",
			input:   `{"path": "/sync"}`,
			wantErr: "missing 'type' field",
		},
		{
			name:    "unknown type",
			input:   `{"type": "ftp"}`,
			wantErr: "unknown server type: ftp",
		},
		{
			name:    "local without path",
			input:   `{"type": "local"}`,
			wantErr: "missing 'path' field",
		},
		{
			name:    "aws without region",
			input:   `{"type": "aws", "bucket": "b", "encryption_secret": "s", "credentials": {"type": "default"}}`,
			wantErr: "missing 'region' field",
		},
		{
			name:    "aws without bucket",
			input:   `{"type": "aws", "region": "r", "encryption_secret": "s", "credentials": {"type": "default"}}`,
			wantErr: "missing 'bucket' field",
		},
		{
			name:    "aws without credentials",
			input:   `{"type": "aws", "region": "r", "bucket": "b", "encryption_secret": "s"}`,
			wantErr: "missing 'credentials' field",
		},
		{
			name: "aws without secret",
			input: `{"type": "aws", "region": "r", "bucket": "b",
				"credentials": {"type": "default"}}`,
			wantErr: "empty encryption secret",
		},
		{
			name: "aws access key without secret key",
			input: `{"type": "aws", "region": "r", "bucket": "b", "encryption_secret": "s",
				"credentials": {"type": "access_key", "access_key_id": "id"}}`,
			wantErr: "missing 'secret_access_key' field",
		},
		{
			name: "aws unknown credential type",
			input: `{"type": "aws", "region": "r", "bucket": "b", "encryption_secret": "s",
				"credentials": {"type": "oauth"}}`,
			wantErr: "unknown AWS credential type: oauth",
		},
		{
			name:    "gcp without secret",
			input:   `{"type": "gcp", "bucket": "b"}`,
			wantErr: "empty encryption secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewLocalServerFromConfig(t *testing.T) {
	cfg, err := ParseConfig(`{"type": "local", "path": "` + t.TempDir() + `", "encryption_secret": "s"}`)
	require.NoError(t, err)

	srv, sealer, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, sealer)
}

func TestNewLocalServerWithoutSecret(t *testing.T) {
	cfg, err := ParseConfig(`{"type": "local", "path": "` + t.TempDir() + `"}`)
	require.NoError(t, err)

	srv, sealer, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.Nil(t, sealer)
}

func TestNewGCPServerIsRejected(t *testing.T) {
	cfg, err := ParseConfig(`{"type": "gcp", "bucket": "b", "encryption_secret": "s"}`)
	require.NoError(t, err)

	_, _, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "GCP")
}
