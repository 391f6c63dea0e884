package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ArchiveStorage guarda los XML originales en un bucket compatible con S3
type ArchiveStorage struct {
	s3Client *s3.Client
	logger   *logrus.Logger
	bucket   string
}

// NewArchiveStorage crea el cliente S3 para el endpoint configurado
func NewArchiveStorage(cfg *config.ArchiveConfig, logger *logrus.Logger) (*ArchiveStorage, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.Endpoint,
			SigningRegion:     cfg.Region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			},
		}),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO y similares requieren path-style
		o.UsePathStyle = true
	})

	return &ArchiveStorage{
		s3Client: s3Client,
		logger:   logger,
		bucket:   cfg.Bucket,
	}, nil
}

// HealthCheck verifica que el bucket exista
func (s *ArchiveStorage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking archive bucket: %w", err)
	}
	return nil
}

// Upload sube un objeto al bucket del archivo
func (s *ArchiveStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("error uploading %s to archive: %w", key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(data),
	}).Debug("Object uploaded to archive")
	return nil
}

// Download descarga un objeto del bucket del archivo
func (s *ArchiveStorage) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading %s from archive: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading archived object: %w", err)
	}
	return data, nil
}

// Delete elimina un objeto del bucket del archivo
func (s *ArchiveStorage) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting %s from archive: %w", key, err)
	}
	return nil
}
