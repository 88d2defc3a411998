package main

import (
	_ "cuentas/api/swagger" // swagger docs
	"cuentas/internal/database"
	"cuentas/internal/handler"
	"cuentas/internal/middleware"
	"cuentas/internal/repository"
	"cuentas/internal/service"
	"cuentas/internal/websocket"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Financial Obligation Ledger API
// @version         1.0
// @description     Accounts-payable (CxP) and accounts-receivable (CxC) ledger for the management console.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	rateFeedURL := os.Getenv("RATE_FEED_URL")
	if rateFeedURL == "" {
		rateFeedURL = "http://localhost:9000/rates/daily"
	}
	attachmentDir := os.Getenv("ATTACHMENT_DIR")
	if attachmentDir == "" {
		attachmentDir = "data/attachments"
	}

	// Set up WebSocket Hub (upload progress events)
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	counterpartyRepo := repository.NewCounterpartyRepository(db)
	rateRepo := repository.NewRateRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	entryService := service.NewEntryService(entryRepo, counterpartyRepo, rateRepo, auditRepo, txManager)
	counterpartyService := service.NewCounterpartyService(counterpartyRepo)
	rateService := service.NewRateService(service.NewHTTPRateGateway(rateFeedURL), rateRepo)
	attachmentService := service.NewAttachmentService(entryRepo, auditRepo, wsHub, attachmentDir)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	entryHandler := handler.NewEntryHandler(entryService)
	counterpartyHandler := handler.NewCounterpartyHandler(counterpartyService)
	rateHandler := handler.NewRateHandler(rateService)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	entryHandler.RegisterRoutes(router.Group(""))
	counterpartyHandler.RegisterRoutes(router.Group(""))
	rateHandler.RegisterRoutes(router.Group(""))
	attachmentHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
