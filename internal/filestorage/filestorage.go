package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStorageNotConfigured é retornado quando nenhum provedor foi inicializado.
var ErrStorageNotConfigured = errors.New("file storage provider not configured")

// FileStorageProvider defines an interface for file storage operations.
type FileStorageProvider interface {
	// UploadFile uploads a file and returns the objectName (key/path) of the stored file.
	UploadFile(ctx context.Context, organizationID string, objectName string, fileContent io.Reader) (storedObjectName string, err error)
	DeleteFile(ctx context.Context, objectName string) error
	GetSignedURL(ctx context.Context, objectName string, durationMinutes int) (signedURL string, err error)
}

// DefaultFileStorageProvider holds the initialized default provider.
var DefaultFileStorageProvider FileStorageProvider

// InitFileStorage initializes the default file storage provider based on configuration.
// Falhas não bloqueiam a inicialização da aplicação; uploads de evidência ficam desabilitados.
func InitFileStorage(ctx context.Context) {
	providerType := config.Cfg.FileStorageProvider
	phxlog.L.Info("Initializing file storage", zap.String("provider_type", providerType))

	var (
		provider FileStorageProvider
		err      error
	)
	switch providerType {
	case "s3":
		var s3p *S3StorageProvider
		s3p, err = InitializeS3Provider(ctx)
		if s3p != nil {
			provider = s3p
		}
	case "gcs":
		var gcsp *GCSStorageProvider
		gcsp, err = InitializeGCSProvider(ctx)
		if gcsp != nil {
			provider = gcsp
		}
	default:
		phxlog.L.Warn("Unsupported FILE_STORAGE_PROVIDER. Evidence uploads will be disabled.", zap.String("provider_type", providerType))
	}

	if err != nil {
		phxlog.L.Error("Failed to initialize file storage provider", zap.String("provider_type", providerType), zap.Error(err))
	}
	DefaultFileStorageProvider = provider
	if provider == nil {
		phxlog.L.Warn("No file storage provider initialized. Evidence uploads will be disabled.")
		return
	}
	phxlog.L.Info("File storage provider initialized successfully.", zap.String("provider_type", providerType))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// EvidenceObjectName monta a chave do objeto de evidência de uma constatação:
// <org>/findings/<finding>/<uuid>_<nome sanitizado>.
func EvidenceObjectName(organizationID, findingID uuid.UUID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "evidence"
	}
	return fmt.Sprintf("%s/findings/%s/%s_%s", organizationID, findingID, uuid.New(), base)
}

// BelongsToOrganization indica se a chave está sob o prefixo da organização.
func BelongsToOrganization(objectName string, organizationID uuid.UUID) bool {
	return strings.HasPrefix(objectName, organizationID.String()+"/") && !strings.Contains(objectName, "..")
}
