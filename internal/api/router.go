package api

import (
	"bookshelf/internal/auth"       // Identity service
	"bookshelf/internal/catalog"    // Catalog query service
	"bookshelf/internal/media"      // Cover image storage
	"bookshelf/internal/middleware" // Custom package for middleware
	"bookshelf/internal/reviews"    // Review workflow

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics exposition
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the stores and settings the router is built from
type Deps struct {
	DB             *gorm.DB      // Relational store
	Redis          *redis.Client // Sessions and admin cache
	Auth           *auth.Service // Identity service
	Media          *media.Store  // Uploaded cover images
	Secret         string        // Signs flash cookies
	TrustedProxies []string      // Proxies allowed to set client IP headers
}

// NewRouter wires every route of the site
func NewRouter(deps Deps) (*gin.Engine, error) {
	catalogSvc := catalog.NewService(deps.DB)                                              // Catalog queries and admin writes
	workflow := reviews.NewWorkflow(deps.DB, catalogSvc, InvalidateAdminCache(deps.Redis)) // Review submission

	r := gin.New() // Gin router instance
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(Templates())
	r.Use(
		gin.Recovery(),                             // Turn panics into 500s
		middleware.RequestID(),                     // Correlation ids
		middleware.RequestLogger(),                 // One log line per request
		middleware.Metrics(),                       // Prometheus request metrics
		middleware.Session(deps.Auth, deps.Secret), // Identity and flash messages
		middleware.CSRF(),                          // Token check on state-changing requests
	)
	r.NoRoute(notFound)

	// Catalog routes
	r.GET("/", HomeHandler(catalogSvc))               // Book listing
	r.GET("/books/:id", BookDetailHandler(workflow))  // Book detail
	r.POST("/books/:id", BookDetailHandler(workflow)) // Review submission

	// Auth routes
	r.GET("/register", RegisterHandler(deps.Auth))  // Registration form
	r.POST("/register", RegisterHandler(deps.Auth)) // Registration
	r.GET("/login", LoginHandler(deps.Auth))        // Login form
	r.POST("/login", LoginHandler(deps.Auth))       // Login
	logout := r.Group("/logout", middleware.LoginRequired())
	logout.GET("", LogoutHandler(deps.Auth))  // Logout link
	logout.POST("", LogoutHandler(deps.Auth)) // Logout button

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", middleware.AdminOnly())
	adminGroup.GET("/categories", ListCategoriesHandler(catalogSvc, deps.Redis))           // List categories
	adminGroup.POST("/categories", CreateCategoryHandler(catalogSvc, deps.Redis))          // Create category
	adminGroup.DELETE("/categories/:id", DeleteCategoryHandler(catalogSvc, deps.Redis))    // Delete category
	adminGroup.GET("/books", ListBooksHandler(catalogSvc, deps.Redis))                     // List books
	adminGroup.POST("/books", CreateBookHandler(catalogSvc, deps.Media, deps.Redis))       // Create book
	adminGroup.DELETE("/books/:id", DeleteBookHandler(catalogSvc, deps.Media, deps.Redis)) // Delete book
	adminGroup.GET("/reviews", ListReviewsHandler(catalogSvc, deps.Redis))                 // List reviews
	adminGroup.DELETE("/users/:id", DeleteUserHandler(deps.Auth, deps.Redis))              // Delete user

	// Infrastructure routes
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus exposition
	r.Static(media.URLPrefix, deps.Media.Root)       // Uploaded cover images

	return r, nil
}
