package main

import (
	"orm-platform/internal/httpapi"
	"orm-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Token issuance is public; everything else requires an access token.
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// ORM forms. Every route is incident-scoped via the token.
		orm := v1.Group("/orm")
		{
			// Reads are open to any incident role, plus the hidden auditor.
			read := httpapi.RequireIncidentAndAnyRole(
				rbac.RoleMember, rbac.RoleSafetyOfficer, rbac.RoleCommander, rbac.RoleAuditor,
			)
			orm.GET("/", append(read, h.ListForms)...)
			orm.GET("/summary", append(read, h.FormsSummary)...)
			orm.GET("/:form_id", append(read, h.GetForm)...)
			orm.GET("/:form_id/audit", append(read, h.AuditTrail)...)
			orm.GET("/:form_id/export", append(read, h.Export)...)

			// Drafting and mitigation edits.
			edit := httpapi.RequireIncidentAndAnyRole(
				rbac.RoleMember, rbac.RoleSafetyOfficer, rbac.RoleCommander,
			)
			orm.POST("/", append(edit, h.CreateForm)...)
			orm.PUT("/:form_id", append(edit, h.UpdateHeader)...)
			orm.POST("/:form_id/hazards", append(edit, h.AddHazard)...)
			orm.PUT("/:form_id/hazards/:hazard_id", append(edit, h.UpdateHazard)...)
			orm.DELETE("/:form_id/hazards/:hazard_id", append(edit, h.RemoveHazard)...)
			orm.POST("/:form_id/submit", append(edit, h.Submit)...)

			// Approval decisions are reserved to command staff. The gate
			// itself lives in the engine; RBAC never overrides it.
			decide := httpapi.RequireIncidentAndAnyRole(rbac.RoleSafetyOfficer, rbac.RoleCommander)
			orm.POST("/:form_id/approve", append(decide, h.Approve)...)
			orm.POST("/:form_id/disapprove", append(decide, h.Disapprove)...)
		}

		// Hazard template catalog (read-only).
		cat := v1.Group("/catalog")
		cat.Use(rbac.RequireIncident())
		{
			cat.GET("/templates", h.ListTemplates)
			cat.GET("/templates/:template_id", h.GetTemplate)
		}
	}
}
