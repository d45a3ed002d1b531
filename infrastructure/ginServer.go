package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"idgate.io/infrastructure/env"
	"idgate.io/infrastructure/logger"
	middlewares "idgate.io/infrastructure/middleware"
	ratelimit "idgate.io/infrastructure/ratelimit"
	webRoutev1 "idgate.io/infrastructure/routes/ginRouter/web/v1"
	server_response "idgate.io/infrastructure/serverResponse"
	startup "idgate.io/infrastructure/startUp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type serverInterface interface {
	Start()
}

type ginServer struct{}

func (s *ginServer) Start() {
	startup.StartServices()
	defer startup.CleanUpServices()

	server := gin.Default()

	origins := []string{}
	if os.Getenv("GIN_MODE") == "debug" {
		origins = append(origins, "http://localhost:5173")
	}
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	server.Use(cors.New(corsConfig))
	server.Use(ratelimit.TokenBucketPerIP(60))

	api := server.Group("/api")
	v1 := api.Group("/v1")
	webRoutev1.MiscRouter(v1)

	protected := v1.Group("")
	protected.Use(middlewares.APIKeyMiddleware())
	webRoutev1.VerificationRouter(protected)
	webRoutev1.ExtractionRouter(protected)

	server.NoRoute(func(ctx *gin.Context) {
		server_response.Responder.Respond(ctx, http.StatusNotFound, "this route does not exist", nil, nil)
	})

	port := env.Current().Port
	logger.Info("starting server", logger.LoggerOptions{
		Key:  "port",
		Data: port,
	})
	if err := server.Run(fmt.Sprintf(":%s", port)); err != nil {
		logger.Error("server exited", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}
