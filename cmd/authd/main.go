// Command authd serves the authentication API: password, PIN and
// security-question flows over HTTP, backed by Postgres, with optional
// Redis throttling/locks and an optional RabbitMQ audit mirror.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	authkit "github.com/allyelvis/authkit"
	"github.com/allyelvis/authkit/httpapi"
	"github.com/allyelvis/authkit/internal/config"
	"github.com/allyelvis/authkit/providers/httpidp"
	"github.com/allyelvis/authkit/sinks/rabbitmq"
	"github.com/allyelvis/authkit/stores/postgres"
)

func main() {
	// Load .env for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to parse database URL: %v", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("unable to ensure schema: %v", err)
	}
	log.Println("database connection established")

	store := postgres.New(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = redisClient.Close() }()
	}

	var sink authkit.AuditSink
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.New(cfg.RabbitMQURL, "security_events")
		if err != nil {
			log.Printf("WARNING: rabbitmq unavailable at startup: %v. Continuing without audit mirror.", err)
		} else {
			sink = mq
			defer mq.Close()
			log.Println("rabbitmq audit mirror connected")
		}
	}

	engineConfig := authkit.DefaultConfig()
	engineConfig.JWT.Secret = []byte(cfg.JWTSecret)
	engineConfig.JWT.TTL = cfg.TokenTTL
	engineConfig.Security.EnableLoginThrottle = redisClient != nil
	engineConfig.Security.EnableIPThrottle = redisClient != nil

	builder := authkit.New().
		WithConfig(engineConfig).
		WithCredentialStore(store).
		WithSecurityQuestionStore(store).
		WithActivityLogStore(store).
		WithIdentityProvider(httpidp.New(cfg.IdentityProviderURL))
	if redisClient != nil {
		builder = builder.WithRedis(redisClient)
	}
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("unable to build engine: %v", err)
	}
	defer engine.Close()

	cookies := httpapi.NewCookieManager(httpapi.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.Production(),
	})

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Mount("/", httpapi.New(engine, cookies).Routes())

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("authd listening on :%s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
