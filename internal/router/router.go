// Package router registers the HTTP routes of the invoice API.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/AhmedTUD/invoice/internal/config"
	"github.com/AhmedTUD/invoice/internal/handler"
	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/middleware"
)

// Deps bundles everything the routes need. Redis may be nil, in which case
// the catalog cache and the login rate limit pass requests through.
type Deps struct {
	Health      *handler.HealthHandler
	Submissions *handler.SubmissionHandler
	Employees   *handler.EmployeeHandler
	Catalog     *handler.CatalogHandler
	Admin       *handler.AdminHandler
	Exports     *handler.ExportHandler
	Files       *handler.FileHandler
	TestData    *handler.TestDataHandler

	Sessions  middleware.SessionVerifier
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Logger    logging.Logger

	CORSOrigins []string
	// BodyLimit caps multipart submissions, e.g. "64M".
	BodyLimit string
}

// RegisterRoutes installs the global middleware and every /api route on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  d.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.HeaderSessionToken},
		ExposeHeaders: []string{echo.HeaderContentDisposition, handler.HeaderImagesAdded, handler.HeaderImagesSkipped},
	}))
	e.Use(middleware.AttachLogger(log))
	e.Use(middleware.AccessLog(log))

	e.GET("/api/health", d.Health.Health)

	admin := middleware.RequireSession(d.Sessions)

	registerSubmissions(e, d, admin)
	registerCatalog(e, d, admin)
	registerAdmin(e, d, admin)

	e.GET("/api/employees/search", d.Employees.Search)
	e.GET("/api/employees/:email", d.Employees.Get)

	e.GET("/api/image/:filename", d.Files.Image)
	e.GET("/api/files/:filename", d.Files.File)

	e.POST("/api/test-data", d.TestData.Seed, admin)
}

func registerSubmissions(e *echo.Echo, d Deps, admin echo.MiddlewareFunc) {
	limit := d.BodyLimit
	if limit == "" {
		limit = "64M"
	}
	e.POST("/api/submissions", d.Submissions.Create, echomw.BodyLimit(limit))
	e.GET("/api/submissions", d.Submissions.List)

	e.DELETE("/api/submissions", d.Submissions.PurgeAll, admin)
	e.DELETE("/api/submissions/filtered", d.Submissions.PurgeFiltered, admin)
	e.DELETE("/api/invoices/filtered", d.Submissions.PurgeInvoices, admin)
	e.DELETE("/api/invoices/:id", d.Submissions.DeleteInvoice, admin)

	g := e.Group("/api/exports", admin)
	g.GET("/spreadsheet", d.Exports.Spreadsheet)
	g.GET("/archive", d.Exports.Archive)
}

// registerCatalog serves model reads from the Redis cache; writes require a
// session and invalidate the cache in the handler.
func registerCatalog(e *echo.Echo, d Deps, admin echo.MiddlewareFunc) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	e.GET("/api/models", d.Catalog.List, cache)
	e.GET("/api/models/active", d.Catalog.ListActive, cache)

	g := e.Group("/api/models", admin)
	g.POST("", d.Catalog.Create)
	g.PUT("/:id", d.Catalog.Update)
	g.DELETE("/:id", d.Catalog.Delete)
}

func registerAdmin(e *echo.Echo, d Deps, admin echo.MiddlewareFunc) {
	g := e.Group("/api/admin")
	g.POST("/login", d.Admin.Login, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	g.POST("/verify-session", d.Admin.VerifySession)
	g.POST("/logout", d.Admin.Logout)
	g.POST("/change-password", d.Admin.ChangePassword, admin)
}
