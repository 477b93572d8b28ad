package handlers

import (
	"net/http"
	"strconv"

	"fsms/backend/internal/filestorage"

	"github.com/gin-gonic/gin"
)

const defaultSignedURLDurationMinutes = 15 // Duração padrão da URL assinada

// GetSignedURLForObjectHandler gera uma URL assinada para um objeto de evidência da organização.
// Query param: ?objectKey=<org>/findings/<finding>/<arquivo>
// Query param: ?durationMinutes=30 (opcional, default 15)
func GetSignedURLForObjectHandler(c *gin.Context) {
	objectKey := c.Query("objectKey")
	if objectKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "objectKey query parameter is required"})
		return
	}

	durationMinutes := defaultSignedURLDurationMinutes
	if durationStr := c.Query("durationMinutes"); durationStr != "" {
		val, err := strconv.Atoi(durationStr)
		if err != nil || val <= 0 || val > 60*24*7 { // Max 7 dias (AWS S3 V4 max)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid durationMinutes, must be a positive integer (max 10080 for 7 days)."})
			return
		}
		durationMinutes = val
	}

	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	if !filestorage.BelongsToOrganization(objectKey, orgID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Object does not belong to your organization"})
		return
	}

	if filestorage.DefaultFileStorageProvider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage provider not configured"})
		return
	}

	signedURL, err := filestorage.DefaultFileStorageProvider.GetSignedURL(c.Request.Context(), objectKey, durationMinutes)
	if err != nil {
		respondServiceError(c, err, "generate signed URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"signed_url": signedURL, "expires_in_minutes": durationMinutes})
}
