package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/config"
	"github.com/memberwell/memberwell-backend/internal/database"
	"github.com/memberwell/memberwell-backend/internal/handlers"
	"github.com/memberwell/memberwell-backend/internal/middleware"
	"github.com/memberwell/memberwell-backend/internal/routes"
	"github.com/memberwell/memberwell-backend/internal/services"
	"github.com/memberwell/memberwell-backend/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to MongoDB (mail dispatch log; non-fatal)
	log.Printf("Connecting to MongoDB...")
	if err := database.ConnectMongo(cfg.MongoURI); err != nil {
		log.Printf("⚠️  WARNING: MongoDB unavailable, mail dispatch log disabled: %v", err)
	} else {
		defer database.DisconnectMongo()
	}

	// Services
	provider := services.NewLocalAuthProvider(database.PostgresDB, database.RedisClient)
	mailer := services.NewSMTPMailer(cfg, database.MongoDB)
	resetLimiter := services.NewResetRateLimiter(database.RedisClient)

	var uploads *services.DocumentService
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		var err error
		uploads, err = services.NewDocumentService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
		} else {
			log.Println("✅ Document storage initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Document uploads will not be available")
	}

	if cfg.AdminAPIKey == "" {
		log.Println("⚠️  WARNING: ADMIN_API_KEY not set. Admin endpoints are disabled.")
	}

	// Stores
	members := store.NewMemberStore(database.PostgresDB)
	profiles := store.NewProfileStore(database.PostgresDB)
	transitions := store.NewTransitionStore(database.PostgresDB)
	resetTokens := store.NewResetTokenStore(database.PostgresDB)
	audit := store.NewAuditStore(database.PostgresDB)
	documents := store.NewDocumentStore(database.PostgresDB)

	// Auth flows
	loginService := &auth.LoginService{
		Provider: provider,
		Members:  members,
		Profiles: profiles,
		Audit:    audit,
	}
	transitionService := &auth.EmailTransitionService{
		Transitions:   transitions,
		Members:       members,
		Provider:      provider,
		Mailer:        mailer,
		Audit:         audit,
		VerifyBaseURL: cfg.VerifyURL(),
	}
	resetService := &auth.PasswordResetService{
		Members:       members,
		Tokens:        resetTokens,
		Transitions:   transitions,
		Provider:      provider,
		Mailer:        mailer,
		Audit:         audit,
		RateLimit:     resetLimiter,
		ResetBaseURL:  cfg.ResetURL(),
		VerifyBaseURL: cfg.VerifyURL(),
	}

	// Router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
	}
	r.Use(middleware.RateLimit)

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, routes.Handlers{
		Auth:        &handlers.AuthHandler{Login: loginService, Provider: provider},
		Resets:      &handlers.PasswordResetHandler{Resets: resetService},
		Transitions: &handlers.EmailTransitionHandler{Transitions: transitionService},
		Profile:     &handlers.ProfileHandler{Profiles: profiles, Members: members},
		Admin:       &handlers.MemberAdminHandler{Members: members, Provider: provider, Audit: audit},
		Documents:   &handlers.DocumentHandler{Uploads: uploads, Documents: documents},

		RequireSession: middleware.RequireSession(provider, members),
		RequireAdmin:   middleware.RequireAdmin(cfg.AdminAPIKey),
	})

	log.Printf("🚀 Memberwell backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
