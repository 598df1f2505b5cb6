package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/menuhub/auth-service/internal/config"
	"github.com/menuhub/auth-service/internal/http/handler"
	"github.com/menuhub/auth-service/internal/http/middleware"
)

// NewRouter assembles the gin engine with the middleware chain and all
// auth routes.
func NewRouter(cfg config.Config, logger *zap.Logger, auth *handler.AuthHandler, authmw *middleware.Auth) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg),
		otelgin.Middleware(cfg.ServiceName),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/signup", auth.Signup)
		authGroup.GET("/exists", auth.Exists)
		authGroup.POST("/refresh", auth.Refresh)
		authGroup.GET("/me", authmw.RequireUser, auth.Me)
		authGroup.GET("/kakao/profile", authmw.RequireUser, auth.KakaoProfile)
	}

	oauthGroup := router.Group("/oauth/kakao")
	{
		oauthGroup.GET("/start", auth.KakaoStart)
		oauthGroup.GET("/callback", auth.KakaoCallback)
	}

	return router
}
