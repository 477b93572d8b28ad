package router

import (
	"net/http"
	"time"

	"fsms/backend/internal/auth"
	"fsms/backend/internal/database"
	"fsms/backend/internal/handlers"
	phxmiddleware "fsms/backend/internal/middleware"
	"fsms/backend/internal/models"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	managers = auth.RequireRoles(models.RoleAdmin, models.RoleManager)
	admins   = auth.RequireRoles(models.RoleAdmin)
	// quem pode registrar avaliações e achados
	assessors = auth.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleAuditor)
)

// SetupRouter configura e retorna uma instância do Gin Engine.
func SetupRouter(log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Adicionar middlewares globais
	router.Use(phxmiddleware.RequestID())
	router.Use(phxmiddleware.Metrics())
	router.Use(phxmiddleware.GinZap(log, time.RFC3339, true))
	router.Use(phxmiddleware.GinRecovery(log, true))

	// Endpoint para métricas Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rotas de Saúde
	router.GET("/health", healthCheckHandler)

	setupAuthRoutes(router)
	setupV1Routes(router)

	return router
}

func healthCheckHandler(c *gin.Context) {
	// Obter a instância do banco de dados SQL do GORM
	sqlDB, err := database.GetDB().DB()
	if err != nil {
		phxlog.L.Error("Erro ao obter a instância do DB para o health check", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database instance error"})
		return
	}

	// Ping no banco de dados para verificar a conectividade
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		phxlog.L.Error("Falha no ping do banco de dados durante o health check", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database ping failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "connected",
		"version":  config.Cfg.AppVersion,
	})
}

func setupAuthRoutes(r *gin.Engine) {
	authRoutes := r.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", handlers.LoginHandler)
	}
}

func setupV1Routes(r *gin.Engine) {
	apiV1 := r.Group("/api/v1")
	apiV1.Use(auth.AuthMiddleware())
	{
		apiV1.GET("/me", func(c *gin.Context) {
			userID, _ := c.Get("userID")
			userEmail, _ := c.Get("userEmail")
			userRole, _ := c.Get("userRole")
			orgID, _ := c.Get("organizationID")
			c.JSON(http.StatusOK, gin.H{
				"user_id":         userID,
				"email":           userEmail,
				"role":            userRole,
				"organization_id": orgID,
			})
		})
		apiV1.GET("/me/summary", handlers.GetUserDashboardSummaryHandler)

		riskRoutes := apiV1.Group("/risks")
		{
			riskRoutes.POST("", assessors, handlers.CreateRiskHandler)
			riskRoutes.GET("", handlers.ListRisksHandler)
			riskRoutes.POST("/correlations", assessors, handlers.CorrelateRisksHandler)
			riskRoutes.GET("/:riskId", handlers.GetRiskHandler)
			riskRoutes.PUT("/:riskId", assessors, handlers.UpdateRiskHandler)
			riskRoutes.DELETE("/:riskId", managers, handlers.DeleteRiskHandler)
			riskRoutes.GET("/:riskId/correlations", handlers.ListRiskCorrelationsHandler)
		}

		ncRoutes := apiV1.Group("/non-conformances")
		{
			ncRoutes.POST("", handlers.CreateNonConformanceHandler)
			ncRoutes.GET("", handlers.ListNonConformancesHandler)
			ncRoutes.GET("/:ncId", handlers.GetNonConformanceHandler)
			ncRoutes.POST("/:ncId/risk-assessments", assessors, handlers.AssessNonConformanceRiskHandler)
			ncRoutes.GET("/:ncId/risk-assessments", handlers.ListNonConformanceRiskAssessmentsHandler)
			ncRoutes.POST("/:ncId/escalations/evaluate", managers, handlers.EvaluateNonConformanceEscalationsHandler)
		}

		ruleRoutes := apiV1.Group("/escalation-rules")
		{
			ruleRoutes.POST("", managers, handlers.CreateEscalationRuleHandler)
			ruleRoutes.GET("", handlers.ListEscalationRulesHandler)
			ruleRoutes.GET("/:ruleId", handlers.GetEscalationRuleHandler)
			ruleRoutes.PUT("/:ruleId", managers, handlers.UpdateEscalationRuleHandler)
			ruleRoutes.DELETE("/:ruleId", managers, handlers.DeleteEscalationRuleHandler)
			ruleRoutes.POST("/:ruleId/trigger", managers, handlers.TriggerEscalationRuleHandler)
		}

		auditRoutes := apiV1.Group("/audits")
		{
			auditRoutes.POST("", assessors, handlers.CreateAuditHandler)
			auditRoutes.GET("", handlers.ListAuditsHandler)
			auditRoutes.GET("/:auditId", handlers.GetAuditHandler)
			auditRoutes.POST("/:auditId/risk-assessments", assessors, handlers.AssessAuditRiskHandler)
			auditRoutes.POST("/:auditId/findings", assessors, handlers.CreateFindingHandler)
			auditRoutes.GET("/:auditId/findings", handlers.ListFindingsHandler)
		}

		findingRoutes := apiV1.Group("/findings")
		{
			findingRoutes.POST("/:findingId/risk-assessments", assessors, handlers.AssessFindingRiskHandler)
			findingRoutes.POST("/:findingId/evidence", assessors, handlers.UploadFindingEvidenceHandler)
		}

		apiV1.GET("/files/signed-url", handlers.GetSignedURLForObjectHandler)

		dashboardRoutes := apiV1.Group("/dashboard")
		{
			dashboardRoutes.GET("/risk-overview", handlers.GetRiskOverviewHandler)
			dashboardRoutes.GET("/escalation-summary", handlers.GetEscalationSummaryHandler)
		}

		// Rotas com escopo de organização; organizationScope confere :orgId contra o token.
		orgRoutes := apiV1.Group("/organizations/:orgId")
		{
			webhookRoutes := orgRoutes.Group("/webhooks")
			{
				webhookRoutes.POST("", handlers.CreateWebhookHandler)
				webhookRoutes.GET("", handlers.ListWebhooksHandler)
				webhookRoutes.GET("/:webhookId", handlers.GetWebhookHandler)
				webhookRoutes.PUT("/:webhookId", handlers.UpdateWebhookHandler)
				webhookRoutes.DELETE("/:webhookId", handlers.DeleteWebhookHandler)
				webhookRoutes.POST("/:webhookId/test", handlers.SendTestWebhookHandler)
			}

			userRoutes := orgRoutes.Group("/users")
			{
				userRoutes.POST("", handlers.CreateOrganizationUserHandler)
				userRoutes.GET("", handlers.ListOrganizationUsersHandler)
				userRoutes.GET("/:userId", handlers.GetOrganizationUserHandler)
				userRoutes.PUT("/:userId/role", handlers.UpdateOrganizationUserRoleHandler)
				userRoutes.PUT("/:userId/status", handlers.UpdateOrganizationUserStatusHandler)
			}
		}

		adminRoutes := apiV1.Group("/admin", admins)
		{
			adminRoutes.GET("/settings", handlers.ListSystemSettingsHandler)
			adminRoutes.PUT("/settings", handlers.UpdateSystemSettingsHandler)
			adminRoutes.POST("/settings/test-email", handlers.SendTestEmailHandler)
		}
	}
}
