package router

import (
	"github.com/billforge/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers mounted under the API prefix
type Handlers struct {
	System   *handler.SystemHandler
	Plan     *handler.PlanHandler
	Billing  *handler.BillingHandler
	Document *handler.DocumentHandler
	APIKey   *handler.APIKeyHandler
	Webhook  *handler.IdentityWebhookHandler
}

// Guards are the access checks applied per group. Authenticate must run
// before the others, which read the caller it stores.
type Guards struct {
	Authenticate    gin.HandlerFunc
	RequireAdmin    gin.HandlerFunc
	AdvancedReports gin.HandlerFunc
	APIAccess       gin.HandlerFunc
}

// BillingGroups builds the route groups of the billing API
func BillingGroups(h Handlers, g Guards) []*DomainGroup {
	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	plans := NewDomainGroup("plans", "/plans").
		GET("", h.Plan.List).
		GET("/:id", h.Plan.Get)

	admin := NewDomainGroup("admin", "/admin").Use(g.Authenticate, g.RequireAdmin)
	admin.Group("admin-plans", "/plans").
		POST("", h.Plan.Create).
		PUT("/:id", h.Plan.Update).
		DELETE("/:id", h.Plan.Delete)

	me := NewDomainGroup("me", "/me").Use(g.Authenticate).
		GET("/entitlement", h.Billing.GetEntitlement)

	billing := NewDomainGroup("billing", "/billing").Use(g.Authenticate).
		POST("/free-plan", h.Billing.ApplyFreePlan).
		POST("/orders", h.Billing.CreateOrder).
		POST("/verify", h.Billing.VerifyPayment)

	documents := NewDomainGroup("documents", "/documents").Use(g.Authenticate).
		POST("", h.Document.Create).
		GET("", h.Document.List).
		GET("/:id", h.Document.Get).
		PUT("/:id", h.Document.Update).
		DELETE("/:id", h.Document.Delete).
		POST("/:id/status", h.Document.UpdateStatus).
		POST("/:id/convert", h.Document.Convert)

	reports := NewDomainGroup("reports", "/reports").Use(g.Authenticate, g.AdvancedReports).
		GET("/summary", h.Document.Summary)

	apiKeys := NewDomainGroup("api-keys", "/api-keys").Use(g.Authenticate, g.APIAccess).
		POST("", h.APIKey.Create).
		GET("", h.APIKey.List).
		DELETE("/:id", h.APIKey.Revoke)

	// signed by the identity provider, not by a user token
	identity := NewDomainGroup("identity", "/identity").
		POST("/webhook", h.Webhook.Handle)

	return []*DomainGroup{system, plans, admin, me, billing, documents, reports, apiKeys, identity}
}
