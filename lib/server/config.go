package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Config is the serialized server configuration handed across the
// boundary as a JSON document.
//
//	{"type": "local", "path": "/sync", "encryption_secret": "s3cret"}
//	{"type": "aws", "region": "eu-central-1", "bucket": "b",
//	 "encryption_secret": "s3cret",
//	 "credentials": {"type": "access_key", "access_key_id": "...",
//	                 "secret_access_key": "..."}}
type Config struct {
	Type             string          `json:"type"`
	Bucket           string          `json:"bucket,omitempty"`
	Region           string          `json:"region,omitempty"`
	Credentials      *AWSCredentials `json:"credentials,omitempty"`
	CredentialPath   string          `json:"credential_path,omitempty"`
	Path             string          `json:"path,omitempty"`
	EncryptionSecret string          `json:"encryption_secret,omitempty"`
}

// ParseConfig decodes and validates a serialized server configuration.
func ParseConfig(data string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON - %v", err)
	}
	if cfg.Type == "" {
		return Config{}, errors.New("missing 'type' field")
	}

	switch cfg.Type {
	case "local":
		if cfg.Path == "" {
			return Config{}, errors.New("missing 'path' field for local")
		}
	case "aws":
		if cfg.Bucket == "" {
			return Config{}, errors.New("missing 'bucket' field")
		}
		if cfg.Region == "" {
			return Config{}, errors.New("missing 'region' field for AWS")
		}
		if cfg.Credentials == nil {
			return Config{}, errors.New("missing 'credentials' field for AWS")
		}
		switch cfg.Credentials.Type {
		case "":
			return Config{}, errors.New("missing 'type' field in AWS credentials")
		case "access_key":
			if cfg.Credentials.AccessKeyID == "" {
				return Config{}, errors.New("missing 'access_key_id' field")
			}
			if cfg.Credentials.SecretAccessKey == "" {
				return Config{}, errors.New("missing 'secret_access_key' field")
			}
		case "profile":
			if cfg.Credentials.ProfileName == "" {
				return Config{}, errors.New("missing 'profile_name' field")
			}
		case "default":
		default:
			return Config{}, fmt.Errorf("unknown AWS credential type: %s", cfg.Credentials.Type)
		}
		if cfg.EncryptionSecret == "" {
			return Config{}, errors.New("empty encryption secret")
		}
	case "gcp":
		if cfg.Bucket == "" {
			return Config{}, errors.New("missing 'bucket' field")
		}
		if cfg.EncryptionSecret == "" {
			return Config{}, errors.New("empty encryption secret")
		}
	default:
		return Config{}, fmt.Errorf("unknown server type: %s", cfg.Type)
	}
	return cfg, nil
}

// New builds the server backend and payload sealer for a parsed
// configuration. The sealer is nil when no encryption secret is set
// (allowed for the local type only).
func New(ctx context.Context, cfg Config) (Server, *Sealer, error) {
	var sealer *Sealer
	if cfg.EncryptionSecret != "" {
		var err error
		sealer, err = NewSealer([]byte(cfg.EncryptionSecret))
		if err != nil {
			return nil, nil, err
		}
	}

	switch cfg.Type {
	case "local":
		srv, err := NewLocal(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return srv, sealer, nil
	case "aws":
		srv, err := NewAWS(ctx, cfg.Region, cfg.Bucket, *cfg.Credentials)
		if err != nil {
			return nil, nil, err
		}
		return srv, sealer, nil
	case "gcp":
		return nil, nil, errors.New("GCP server support is not built into this client")
	default:
		return nil, nil, fmt.Errorf("unknown server type: %s", cfg.Type)
	}
}
