package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// AWSCredentials selects how the S3 client authenticates, mirroring the
// "credentials" object of the serialized server configuration.
type AWSCredentials struct {
	Type            string `json:"type"` // access_key, profile or default
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	ProfileName     string `json:"profile_name,omitempty"`
}

// awsServer stores the version chain in an S3 bucket: one object per
// version under version/, a child/ pointer object per parent, and a
// latest object holding the chain tip.
type awsServer struct {
	client *s3.Client
	bucket string
}

// NewAWS builds an S3-backed sync server for the given region, bucket and
// credential selection.
func NewAWS(ctx context.Context, region, bucket string, creds AWSCredentials) (Server, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	switch creds.Type {
	case "access_key":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	case "profile":
		opts = append(opts, awsconfig.WithSharedConfigProfile(creds.ProfileName))
	case "default":
		// Default provider chain.
	default:
		return nil, fmt.Errorf("server: unknown AWS credential type %q", creds.Type)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &awsServer{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

const (
	awsLatestKey    = "latest"
	awsVersionKeyFS = "version/%s"
	awsChildKeyFS   = "child/%s"
)

func awsChildKey(parent string) string {
	if parent == "" {
		parent = "root"
	}
	return fmt.Sprintf(awsChildKeyFS, parent)
}

func (a *awsServer) getObject(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting s3://%s/%s: %w", a.bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading s3://%s/%s: %w", a.bucket, key, err)
	}
	return data, true, nil
}

func (a *awsServer) putObject(ctx context.Context, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.go)
// --------------------------------------------------------------------------

func (a *awsServer) AddVersion(ctx context.Context, parent string, payload []byte) (string, error) {
	data, found, err := a.getObject(ctx, awsLatestKey)
	if err != nil {
		return "", err
	}
	latest := ""
	if found {
		latest = strings.TrimSpace(string(data))
	}
	if parent != latest {
		return "", fmt.Errorf("%w: parent %q is not the latest version %q", ErrVersionConflict, parent, latest)
	}

	v := Version{ID: uuid.New().String(), Parent: parent, Payload: payload}
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding version: %w", err)
	}
	if err := a.putObject(ctx, fmt.Sprintf(awsVersionKeyFS, v.ID), encoded); err != nil {
		return "", err
	}
	if err := a.putObject(ctx, awsChildKey(parent), []byte(v.ID)); err != nil {
		return "", err
	}
	if err := a.putObject(ctx, awsLatestKey, []byte(v.ID)); err != nil {
		return "", err
	}
	return v.ID, nil
}

func (a *awsServer) GetChildVersion(ctx context.Context, parent string) (Version, bool, error) {
	data, found, err := a.getObject(ctx, awsChildKey(parent))
	if err != nil || !found {
		return Version{}, false, err
	}
	childID := strings.TrimSpace(string(data))

	encoded, found, err := a.getObject(ctx, fmt.Sprintf(awsVersionKeyFS, childID))
	if err != nil {
		return Version{}, false, err
	}
	if !found {
		return Version{}, false, fmt.Errorf("server: version %s referenced but missing", childID)
	}
	var v Version
	if err := json.Unmarshal(encoded, &v); err != nil {
		return Version{}, false, fmt.Errorf("decoding version %s: %w", childID, err)
	}
	return v, true, nil
}
