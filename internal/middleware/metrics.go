package middleware

import (
	"strconv"
	"time"

	phxmetrics "fsms/backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics é um middleware Gin para coletar métricas Prometheus para requisições HTTP.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		method := c.Request.Method

		// Usar c.FullPath() para obter o template da rota, o que é melhor para cardinalidade de labels.
		// Rotas não encontradas são agrupadas para não explodir as séries.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if path == "/metrics" || path == "/health" {
			return
		}

		phxmetrics.HTTPRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		phxmetrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
