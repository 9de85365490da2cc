// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/staystra/outreach-backend/internal/brevo"
	"github.com/staystra/outreach-backend/internal/controller"
	"github.com/staystra/outreach-backend/internal/db"
	"github.com/staystra/outreach-backend/internal/enformion"
	"github.com/staystra/outreach-backend/internal/handler"
	"github.com/staystra/outreach-backend/internal/queue"
	"github.com/staystra/outreach-backend/internal/repository"
	"github.com/staystra/outreach-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()

	propertyRepo := &repository.PropertyRepository{DB: db.DB}
	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	eventRepo := &repository.EventRepository{DB: db.DB}

	brevoClient := brevo.NewFromEnv()
	enformionClient := enformion.NewFromEnv()

	syncer := &service.CRMSyncer{
		Campaigns: campaignRepo,
		Directory: brevoClient,
	}

	// Prefer RabbitMQ for CRM sync jobs; fall back to the in-process queue.
	var q queue.Queue
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		amqpQueue, err := queue.DialAmqp(amqpURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
		log.Println("CRM sync jobs will be consumed by cmd/worker via RabbitMQ")
	} else {
		memQueue := queue.NewInMemoryQueue()
		queue.StartCRMSyncSubscriber(memQueue, service.CRMSyncTopic, syncer.Sync)
		q = memQueue
	}

	resolver := &service.Resolver{
		History:   campaignRepo,
		Directory: brevoClient,
		Enricher:  enformionClient,
	}

	dispatcher := &service.Dispatcher{
		Transport: brevoClient,
		Store:     campaignRepo,
		Queue:     q,
		BaseURL:   envOr("API_BASE_URL", "https://email.re-workflow.com"),
		TestMode:  os.Getenv("OUTREACH_TEST_MODE") == "true",
		TestEmail: envOr("OUTREACH_TEST_EMAIL", "test@staystra.com"),
	}

	runner := &service.Runner{
		Properties:      propertyRepo,
		Campaigns:       campaignRepo,
		Resolver:        resolver,
		Dispatcher:      dispatcher,
		ScoreThreshold:  envFloat("OUTREACH_SCORE_THRESHOLD", service.DefaultScoreThreshold),
		AnalyzerBaseURL: envOr("ANALYZER_BASE_URL", "https://staystra.com"),
	}

	tracker := &service.Tracker{
		Campaigns: campaignRepo,
		Events:    eventRepo,
	}

	hour, minute := parseRunAt(envOr("OUTREACH_RUN_AT", "09:00"))
	scheduler := &service.Scheduler{
		Runner: runner,
		Hour:   hour,
		Minute: minute,
		Limit:  envInt("OUTREACH_DAILY_LIMIT", 100),
	}
	scheduler.Start(context.Background())

	outreachController := &controller.OutreachController{
		Runner:       runner,
		Scheduler:    scheduler,
		CampaignRepo: campaignRepo,
		EventRepo:    eventRepo,
	}

	trackingHandler := &handler.TrackingHandler{
		Tracker:     tracker,
		Campaigns:   campaignRepo,
		FallbackURL: envOr("SITE_URL", "https://www.staystra.com"),
	}

	webhookHandler := &handler.WebhookHandler{
		Tracker: tracker,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// Tracking routes
	r.Get("/api/tracking/open/{token}", trackingHandler.Open)
	r.Get("/api/tracking/click/{token}", trackingHandler.Click)
	r.Get("/api/tracking/stats/{token}", trackingHandler.Stats)

	// Provider webhook
	r.Post("/api/webhooks/brevo", webhookHandler.HandleProviderEvents)

	// Outreach routes
	r.Post("/api/outreach/run", outreachController.Run)
	r.Get("/api/outreach/status", outreachController.Status)
	r.Get("/api/outreach/stats", outreachController.Stats)
	r.Get("/api/outreach/campaign/{token}", outreachController.CampaignByToken)

	// Replies
	r.Get("/api/replies", outreachController.Replies)
	r.Get("/api/replies/stats", outreachController.ReplyStats)

	addr := ":" + envOr("PORT", "8080")
	log.Println("🚀 Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func parseRunAt(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 9, 0
	}
	minute := 0
	if len(parts) == 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 0 && m < 60 {
			minute = m
		}
	}
	return hour, minute
}
