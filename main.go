package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"shelfwise/api/analytics"
	"shelfwise/api/database"
	"shelfwise/api/engagement"
	"shelfwise/api/handlers"
	"shelfwise/api/middleware"
	"shelfwise/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL: users, products, leads ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- ClickHouse: the append-only activity event log ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	productStore := store.NewProductStore(dbClient.DB)
	leadStore := store.NewLeadStore(dbClient.DB)
	activityStore := store.NewActivityStore(chClient)

	// --- Core services ---
	scorer := engagement.NewScorer(userStore)
	aggregator := analytics.NewAggregator(activityStore, userStore, productStore)

	// --- Handlers ---
	authHandlers := handlers.NewAuthHandlers(userStore)
	productHandlers := handlers.NewProductHandlers(productStore)
	leadHandlers := handlers.NewLeadHandlers(leadStore)
	activityHandlers := handlers.NewActivityHandlers(activityStore, scorer, aggregator)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandlers.Signup)
			auth.POST("/login", authHandlers.Login)
			auth.POST("/logout", authHandlers.Logout)
			auth.GET("/me", middleware.AuthRequired(), authHandlers.Me)
		}

		products := api.Group("/products")
		{
			products.GET("", productHandlers.ListProducts)
			products.GET("/:id", productHandlers.GetProduct)
			products.POST("", middleware.AuthRequired(), middleware.AdminRequired(), productHandlers.CreateProduct)
		}

		api.POST("/leads", leadHandlers.CaptureLead)

		activities := api.Group("/activities")
		{
			// Tracking is public: anonymous visitors are tracked too.
			activities.POST("/track", activityHandlers.TrackActivity)

			admin := activities.Group("/")
			admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				admin.GET("/analytics", activityHandlers.GetActivityAnalytics)
				admin.GET("/funnel", activityHandlers.GetConversionFunnel)
				admin.GET("/journey", activityHandlers.GetUserJourney)
				admin.GET("/realtime", activityHandlers.GetRealTimeActivity)
				admin.GET("/engagement", activityHandlers.GetEngagementMetrics)
			}
		}

		admin := api.Group("/")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/leads", leadHandlers.ListLeads)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Shelfwise API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
