package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/handlers"
	"github.com/execdash/execdash/internal/config"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/services"
	"github.com/execdash/execdash/storage"
	"github.com/execdash/execdash/store"
)

// Dependencies are the backends the router wires services onto. Redis and
// AuditSink are optional.
type Dependencies struct {
	Store     *store.Store
	Objects   storage.ObjectStore
	Redis     *redis.Client
	Auth      handlers.TokenValidator
	AuditSink services.AuditSink
	Config    config.Config
	Log       logrus.FieldLogger
}

func NewGinRouter(deps Dependencies) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg := deps.Config

	metrics.Init()

	r := gin.New()
	r.Use(gin.Recovery(), metrics.Instrument())

	r.Use(corsMiddleware(cfg.CORSOrigin))

	// Initialize services
	identityService := services.NewIdentityService(deps.Store.Profiles, log)
	if cfg.DefaultOrgID != "" {
		identityService.WithDefaultOrg(cfg.DefaultOrgID)
	}
	auditService := services.NewAuditService(identityService, deps.Store.Audit, deps.AuditSink, log)
	authorizer := authz.NewStoreAuthorizer(deps.Store.ACL, log)

	var locker services.Locker
	if deps.Redis != nil {
		locker = services.NewRedisLocker(deps.Redis)
	}
	workspaceService := services.NewWorkspaceService(identityService, deps.Store.Workspaces, locker, log)
	resourceService := services.NewResourceService(identityService, deps.Store.Workspaces, deps.Store.Resources, authorizer, auditService, cfg.ReadTimeout, log)
	aclService := services.NewACLService(deps.Store.ACL, auditService, log)
	fileService := services.NewFileService(identityService, workspaceService, resourceService, deps.Store.Files,
		deps.Objects, authorizer, auditService, cfg.Storage.SignedURLTTL, log)

	// Initialize handlers
	supabaseAuthMiddleware := handlers.NewSupabaseAuthMiddleware(deps.Auth, log)
	guardMiddleware := handlers.NewGuardMiddleware(identityService, log)
	pageHandler := handlers.NewPageHandler(identityService, workspaceService, resourceService)
	profileHandler := handlers.NewProfileHandler(identityService)
	workspaceHandler := handlers.NewWorkspaceHandler(identityService, workspaceService)
	resourceHandler := handlers.NewResourceHandler(identityService, resourceService, authorizer)
	aclHandler := handlers.NewACLHandler(resourceHandler, aclService)
	fileHandler := handlers.NewFileHandler(fileService, cfg.MaxUploadBytes)
	auditHandler := handlers.NewAuditHandler(resourceHandler, auditService)

	// PUBLIC ENDPOINTS
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// DASHBOARD AREAS (guarded; the token may come from the cookie)
	ceod := r.Group("/ceod", supabaseAuthMiddleware.OptionalSupabaseAuth(), guardMiddleware.Require(authz.CEOOnly))
	{
		ceod.GET("/*page", pageHandler.Area(db.WorkspaceCEO))
	}
	ctod := r.Group("/ctod", supabaseAuthMiddleware.OptionalSupabaseAuth(), guardMiddleware.Require(authz.CTOOnly))
	{
		ctod.GET("/*page", pageHandler.Area(db.WorkspaceCTO))
	}

	// PROTECTED ENDPOINTS (require Supabase authentication)
	api := r.Group("/api")
	api.Use(supabaseAuthMiddleware.SupabaseAuthMiddleware())
	{
		api.GET("/me", profileHandler.GetMe)

		workspaceRoutes := api.Group("/workspaces")
		{
			workspaceRoutes.GET("", workspaceHandler.ListWorkspaces)
			workspaceRoutes.POST("", workspaceHandler.GetOrCreateWorkspace)
		}

		resourceRoutes := api.Group("/resources")
		{
			resourceRoutes.GET("", resourceHandler.ListResources)
			resourceRoutes.POST("", resourceHandler.CreateResource)
			resourceRoutes.GET("/:id", resourceHandler.GetResource)
			resourceRoutes.PATCH("/:id", resourceHandler.UpdateResource)
			resourceRoutes.PUT("/:id/visibility", resourceHandler.UpdateVisibility)
			resourceRoutes.GET("/:id/download", fileHandler.Download)

			// Grant ledger, owner only
			resourceRoutes.GET("/:id/acl", aclHandler.ListGrants)
			resourceRoutes.POST("/:id/acl", aclHandler.Grant)
			resourceRoutes.DELETE("/:id/acl/:grantee_id", aclHandler.Revoke)
		}

		api.POST("/files", fileHandler.Upload)
		api.GET("/audit-logs", auditHandler.ListAuditLogs)
	}

	return r
}

// corsMiddleware allows the configured origin. Credentials are only allowed
// for an explicit origin, never for the "*" wildcard.
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
