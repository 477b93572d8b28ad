package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSStorageProvider implements FileStorageProvider using Google Cloud Storage.
type GCSStorageProvider struct {
	client     *storage.Client
	bucketName string
}

// InitializeGCSProvider initializes the Google Cloud Storage client.
// Retorna nil, nil quando o GCS não está configurado.
func InitializeGCSProvider(ctx context.Context) (*GCSStorageProvider, error) {
	projectID := config.Cfg.GCSProjectID
	bucketName := config.Cfg.GCSBucketName

	if projectID == "" || bucketName == "" {
		phxlog.L.Warn("GCS_PROJECT_ID or GCS_BUCKET_NAME not set. Evidence upload to GCS will be disabled.")
		return nil, nil
	}

	// Sem GCS_CREDENTIALS_FILE, as credenciais padrão do ambiente (ADC) são usadas.
	var opts []option.ClientOption
	if config.Cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.Cfg.GCSCredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Cloud Storage client: %w", err)
	}

	phxlog.L.Info("Google Cloud Storage provider initialized", zap.String("projectID", projectID), zap.String("bucketName", bucketName))
	return &GCSStorageProvider{client: client, bucketName: bucketName}, nil
}

// UploadFile carrega um arquivo para o GCS e retorna seu objectName.
func (g *GCSStorageProvider) UploadFile(ctx context.Context, organizationID string, objectName string, fileContent io.Reader) (string, error) {
	if g.client == nil || g.bucketName == "" {
		return "", ErrStorageNotConfigured
	}

	wc := g.client.Bucket(g.bucketName).Object(objectName).NewWriter(ctx)
	wc.Metadata = map[string]string{"organization_id": organizationID}

	if _, err := io.Copy(wc, fileContent); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to copy file content to GCS object writer: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS object writer: %w", err)
	}

	phxlog.L.Info("File uploaded successfully to GCS",
		zap.String("bucket", g.bucketName),
		zap.String("objectName", objectName))
	return objectName, nil
}

// DeleteFile remove um objeto do GCS. Objetos inexistentes são tratados como sucesso.
func (g *GCSStorageProvider) DeleteFile(ctx context.Context, objectName string) error {
	if g.client == nil || g.bucketName == "" {
		return ErrStorageNotConfigured
	}
	if objectName == "" {
		return errors.New("object name cannot be empty for DeleteFile")
	}

	if err := g.client.Bucket(g.bucketName).Object(objectName).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete object '%s' from GCS bucket '%s': %w", objectName, g.bucketName, err)
	}
	return nil
}

// GetSignedURL gera uma URL assinada (V4) para leitura do objeto.
func (g *GCSStorageProvider) GetSignedURL(ctx context.Context, objectName string, durationMinutes int) (string, error) {
	if g.client == nil || g.bucketName == "" {
		return "", ErrStorageNotConfigured
	}
	if objectName == "" {
		return "", errors.New("object name cannot be empty for GetSignedURL")
	}

	signedURL, err := g.client.Bucket(g.bucketName).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(time.Duration(durationMinutes) * time.Minute),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL for GCS object '%s': %w", objectName, err)
	}
	return signedURL, nil
}
