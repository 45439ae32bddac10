package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/moneymoves/backend/internal/attempts"
	"github.com/moneymoves/backend/internal/auth"
	"github.com/moneymoves/backend/internal/challenges"
	"github.com/moneymoves/backend/internal/database"
	"github.com/moneymoves/backend/internal/gamification"
	"github.com/moneymoves/backend/internal/middleware"
	"github.com/rs/cors"
)

func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(db)

	challengeStore := challenges.NewStore(db)
	challengeHandler := challenges.NewHandler(challengeStore)

	attemptStore := attempts.NewStore(db)
	attemptService := attempts.NewService(attemptStore, challengeStore)
	attemptHandler := attempts.NewHandler(attemptService)

	statsStore := gamification.NewStore(db)
	statsHandler := gamification.NewHandler(statsStore)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/challenges/today", challengeHandler.GetToday).Methods("GET")
	protected.HandleFunc("/challenges/{date:\\d{4}-\\d{2}-\\d{2}}", challengeHandler.GetByDate).Methods("GET")
	protected.HandleFunc("/challenges/{id:[0-9]+}/attempts", attemptHandler.SubmitAttempt).Methods("POST")
	protected.HandleFunc("/challenges/{id:[0-9]+}/results", attemptHandler.GetResults).Methods("GET")
	protected.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
