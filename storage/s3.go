package storage

import (
	"bytes"
	"context"
	"fmt"

	"paper-graph/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client erstellt einen S3-Client für die Artefakt-Ablage.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ArtifactsS3URL,
				SigningRegion:     cfg.ArtifactsS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ArtifactsS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ArtifactsS3Key, cfg.ArtifactsS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// ArtifactStore legt PDF-Artefakte in einem S3-Bucket ab. Der zurückgegebene
// Link wird als pdf_path am Paper persistiert.
type ArtifactStore struct {
	Client  *s3.Client
	Bucket  string
	BaseURL string
}

// NewArtifactStore erstellt eine Artefakt-Ablage über dem S3-Client.
func NewArtifactStore(client *s3.Client, cfg *config.Config) *ArtifactStore {
	return &ArtifactStore{
		Client:  client,
		Bucket:  cfg.ArtifactsS3Bucket,
		BaseURL: cfg.ArtifactsS3URL,
	}
}

// Put lädt ein Artefakt hoch und gibt den dauerhaften Link zurück.
func (a *ArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.Bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", a.BaseURL, a.Bucket, key), nil
}
