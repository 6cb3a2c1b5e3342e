package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
)

// Uploader stores an artifact remotely and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// SpacesUploader uploads artifacts to a DigitalOcean Spaces bucket
type SpacesUploader struct {
	client     s3iface.S3API
	bucketName string
	baseURL    string
	logger     logging.Logger
}

func NewSpacesUploader(cfg config.SpacesConfig, logger logging.Logger) (*SpacesUploader, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, errors.New("DigitalOcean Spaces credentials are required")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("DigitalOcean Spaces bucket name is required")
	}

	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DigitalOcean Spaces session: %w", err)
	}

	logger.Info("DigitalOcean Spaces uploader initialized", map[string]interface{}{
		"bucket_name": cfg.BucketName,
		"region":      cfg.Region,
		"endpoint":    endpoint,
	})

	return newSpacesUploader(s3.New(sess), cfg, logger), nil
}

func newSpacesUploader(client s3iface.S3API, cfg config.SpacesConfig, logger logging.Logger) *SpacesUploader {
	return &SpacesUploader{
		client:     client,
		bucketName: cfg.BucketName,
		baseURL:    publicBaseURL(cfg),
		logger:     logger.WithField("component", "spaces"),
	}
}

// publicBaseURL prefers the CDN, then the bucket URL, then the regional default
func publicBaseURL(cfg config.SpacesConfig) string {
	if cfg.CDNEndpoint != "" {
		return strings.TrimRight(cfg.CDNEndpoint, "/")
	}
	if cfg.BucketURL != "" {
		base := strings.TrimRight(cfg.BucketURL, "/")
		if !strings.HasPrefix(base, "https://") && !strings.HasPrefix(base, "http://") {
			base = "https://" + base
		}
		return base
	}
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com", cfg.BucketName, cfg.Region)
}

// Upload stores data under key as a private object
func (u *SpacesUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("private"),
	})
	if err != nil {
		u.logger.Error("Failed to upload artifact to DigitalOcean Spaces", map[string]interface{}{
			"object_key": key,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := u.baseURL + "/" + key
	u.logger.Info("Artifact uploaded", map[string]interface{}{
		"object_key": key,
		"size_bytes": len(data),
		"url":        url,
	})
	return url, nil
}
