package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3StorageProvider implements FileStorageProvider using Amazon S3.
type S3StorageProvider struct {
	client     *s3.Client
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucketName string
}

// InitializeS3Provider initializes the S3 client.
// Retorna nil, nil se o S3 não estiver configurado.
func InitializeS3Provider(ctx context.Context) (*S3StorageProvider, error) {
	bucket := config.Cfg.AWSS3Bucket
	region := config.Cfg.AWSRegion

	if bucket == "" || region == "" {
		phxlog.L.Warn("AWS_S3_BUCKET or AWS_REGION not set. Evidence upload to S3 will be disabled.")
		return nil, nil
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for S3: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig)
	phxlog.L.Info("Amazon S3 storage provider initialized", zap.String("bucket", bucket), zap.String("region", region))
	return &S3StorageProvider{
		client:     client,
		uploader:   manager.NewUploader(client),
		presigner:  s3.NewPresignClient(client),
		bucketName: bucket,
	}, nil
}

// UploadFile carrega um arquivo para o S3 e retorna a chave do objeto.
// O upload manager faz multipart automaticamente para arquivos maiores.
func (s *S3StorageProvider) UploadFile(ctx context.Context, organizationID string, objectName string, fileContent io.Reader) (string, error) {
	if s.client == nil || s.uploader == nil || s.bucketName == "" {
		return "", ErrStorageNotConfigured
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(objectName),
		Body:     fileContent,
		Metadata: map[string]string{"organization-id": organizationID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3 (bucket: %s, key: %s): %w", s.bucketName, objectName, err)
	}

	phxlog.L.Info("File uploaded successfully to S3", zap.String("bucket", s.bucketName), zap.String("objectName", objectName))
	return objectName, nil
}

// DeleteFile remove o objeto do bucket. O S3 não retorna erro para chaves inexistentes.
func (s *S3StorageProvider) DeleteFile(ctx context.Context, objectName string) error {
	if s.client == nil || s.bucketName == "" {
		return ErrStorageNotConfigured
	}
	if objectName == "" {
		return errors.New("object name cannot be empty for DeleteFile")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object '%s' from S3 bucket '%s': %w", objectName, s.bucketName, err)
	}
	return nil
}

// GetSignedURL gera uma URL pré-assinada de leitura.
func (s *S3StorageProvider) GetSignedURL(ctx context.Context, objectName string, durationMinutes int) (string, error) {
	if s.presigner == nil || s.bucketName == "" {
		return "", ErrStorageNotConfigured
	}
	if objectName == "" {
		return "", errors.New("object name cannot be empty for GetSignedURL")
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectName),
	}, s3.WithPresignExpires(time.Duration(durationMinutes)*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign S3 object '%s': %w", objectName, err)
	}
	return req.URL, nil
}
