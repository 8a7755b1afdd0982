package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"home-services-server/broker"
	"home-services-server/config"
	"home-services-server/database"
	"home-services-server/httpclient"
	"home-services-server/jobs"
	"home-services-server/lifecycle"
	"home-services-server/matching"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/redisclient"
	"home-services-server/routes"
	"home-services-server/services"
	"home-services-server/utils"
	ws "home-services-server/websocket"
)

func main() {
	_ = godotenv.Load()
	config.Load()

	if err := utils.InitLogger(config.AppConfig.Server.GinMode); err != nil {
		panic(err)
	}
	defer utils.SyncLogger()
	logger := utils.GetLogger()

	if err := database.Initialize(); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	store := database.NewStore(database.DB)

	if err := seedWorkers(database.DB); err != nil {
		logger.Warn("worker seeding skipped", zap.Error(err))
	}

	// Event publisher for downstream collaborators (dashboards, notifications).
	var events broker.Publisher
	if config.AppConfig.Kafka.Enabled {
		kp := broker.NewKafkaPublisher(config.AppConfig.Kafka.Brokers, config.AppConfig.Kafka.Topic, logger)
		defer kp.Close()
		events = kp
	}

	// Match cache; the service runs fine without it.
	cache, err := redisclient.New(
		config.AppConfig.Redis.Addr,
		config.AppConfig.Redis.Password,
		config.AppConfig.Redis.DB,
		config.AppConfig.Redis.MatchTTL,
		logger,
	)
	if err != nil {
		logger.Warn("redis unavailable, match caching disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	gatewayClient := httpclient.New(
		config.AppConfig.Gateway.BaseURL,
		logger,
		httpclient.WithToken(config.AppConfig.Gateway.SecretKey),
		httpclient.WithMaxRetries(config.AppConfig.Gateway.MaxRetries),
		httpclient.WithBaseInterval(config.AppConfig.Gateway.BaseInterval),
	)
	gateway := payment.NewGateway(gatewayClient)
	orchestrator := payment.NewOrchestrator(store, gateway, events, logger)
	manager := lifecycle.NewManager(store, events, hub, logger)
	engine := matching.NewEngine(logger)

	orchestrator.OnPaid(func(req *models.ServiceRequest) {
		logger.Info("payment settled, request may progress",
			zap.Uint("request_id", req.ID),
			zap.String("status", string(req.Status)))
	})

	var uploads *services.UploadService
	if config.AppConfig.Cloudinary.URL != "" {
		uploads, err = services.NewUploadService(config.AppConfig.Cloudinary.URL, logger)
		if err != nil {
			logger.Warn("image upload disabled", zap.Error(err))
		}
	}

	reconciler := jobs.NewReconcileJob(store, orchestrator, time.Minute, logger)
	reconciler.Start()
	defer reconciler.Stop()

	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Setup(routes.Dependencies{
		Store:     store,
		Lifecycle: manager,
		Payments:  orchestrator,
		Engine:    engine,
		Cache:     cache,
		Uploads:   uploads,
		Hub:       hub,
		TaxRate:   config.AppConfig.Billing.TaxRate,
		ReturnURL: config.AppConfig.Gateway.ReturnURL,
	})
	routes.RegisterRoutes(router)

	addr := ":" + config.AppConfig.Server.Port
	logger.Info("server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
