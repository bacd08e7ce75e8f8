package internal

import (
	"net/http"
	"strings"
	"time"

	"tutorial-blog/pkg/cache"
	"tutorial-blog/pkg/config"
	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/metrics"
	"tutorial-blog/pkg/middleware"
	blogHTTP "tutorial-blog/services/blog/internal/controller/http"
	"tutorial-blog/services/blog/internal/repo/persistent"
	"tutorial-blog/services/blog/internal/usecase"
	"tutorial-blog/services/blog/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "tutorial-blog/services/blog/docs" // Swagger docs
)

// Deps are the collaborators NewRouter wires together. Redis may be nil: rate
// limiting then falls back to memory and logout revocation is disabled.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	JWTService  *jwt.Service
	Registry    *prometheus.Registry
}

func NewRouter(d Deps) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	metrics.RegisterCollectors(d.Registry)

	blacklist := cache.NewTokenBlacklist(d.RedisClient)

	// Initialize repositories
	postRepo := persistent.NewPostRepository(d.DB)
	userRepo := persistent.NewUserRepository(d.DB)

	// Initialize use cases
	postUseCase := usecase.NewPostUseCase(postRepo, userRepo, d.Logger)
	authUseCase := usecase.NewAuthUseCase(userRepo, d.JWTService, blacklist, d.Logger)

	// Initialize HTTP handlers
	postHandler := blogHTTP.NewPostHandler(postUseCase, d.Logger)
	postAPIHandler := blogHTTP.NewPostAPIHandler(postUseCase, d.Logger)
	authHandler := blogHTTP.NewAuthHandler(authUseCase, d.Logger, blogHTTP.CookieSettings{
		Secure: d.Config.CookieSecure,
		MaxAge: d.JWTService.TTL(),
	})

	r := gin.Default()
	r.SetHTMLTemplate(tmpl)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	identity := middleware.OptionalAuthMiddleware(d.JWTService, blacklist)
	limiter := middleware.RateLimitMiddleware(d.RedisClient, d.Config.RateLimitPerMinute, time.Minute)
	loginLimiter := middleware.RateLimitWithRejection(d.RedisClient, d.Config.RateLimitPerMinute, time.Minute, authHandler.LoginThrottled)

	pages := r.Group("/")
	pages.Use(identity)
	{
		pages.GET("", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/posts/")
		})
		pages.GET("/posts/", postHandler.ListPosts)
		pages.GET("/posts/add/", postHandler.NewPostForm)
		pages.POST("/posts/add/", postHandler.CreatePost)
		pages.GET("/posts/:id/", postHandler.GetPost)

		pages.GET("/accounts/login/", authHandler.LoginPage)
		pages.POST("/accounts/login/", loginLimiter, authHandler.LoginSubmit)
		pages.POST("/accounts/logout/", authHandler.LogoutSubmit)
	}

	corsConfig := cors.Config{
		AllowOrigins:     d.Config.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		// cors.New panics on an empty origin list
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}

	api := r.Group("/api/v1")
	api.Use(cors.New(corsConfig))
	api.Use(identity)
	api.Use(limiter)
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)

		api.GET("/posts", postAPIHandler.ListPosts)
		api.GET("/posts/:id", postAPIHandler.GetPost)
		api.POST("/posts", postAPIHandler.CreatePost)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(d.JWTService, blacklist))
		{
			protected.GET("/me", authHandler.Me)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		blogHTTP.NotFound(c)
	})

	return r, nil
}
