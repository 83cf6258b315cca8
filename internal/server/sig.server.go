package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"signature-service/internal/config"
	"signature-service/internal/handler"
	"signature-service/internal/repository"
	"signature-service/internal/router"
	"signature-service/internal/service/artifact"
	"signature-service/internal/service/pairing"
	"signature-service/internal/usecase"
	"signature-service/internal/ws"
	"signature-service/pkg/cache"
	"signature-service/pkg/id"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func NewServer(cfg config.AppConfig) *http.Server {
	// --- Connect Postgres ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect DB: %v", err)
	}

	// --- Init Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect Redis: %v", err)
	}
	log.Printf("[SERVER] ✅ Redis connected: %s", cfg.RedisAddr)

	redisCache := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)

	// --- ID generator ---
	sf, err := id.NewSnowflake(cfg.MachineID)
	if err != nil {
		log.Fatalf("failed to init snowflake: %v", err)
	}

	// --- Repositories ---
	deviceRepo := repository.NewDeviceRepo(dbpool)
	sessionRepo := repository.NewSessionRepo(dbpool)
	artifactRepo := repository.NewArtifactRepo(dbpool)

	// --- Services ---
	codeStore := pairing.NewRedisCodeStore(redisCache)
	pairingSvc := pairing.NewService(codeStore, deviceRepo, cfg.TransportEndpoint)
	artifactStore := artifact.NewRedisStore(rdb, artifactRepo, cfg.ArtifactTTL)

	// --- WebSocket hub + event publisher ---
	hub := ws.NewHub()
	publisher := ws.NewSessionEventPublisher(rdb)

	// --- Usecases ---
	sessionUC := usecase.NewSessionUsecase(
		sessionRepo,
		deviceRepo,
		artifactStore,
		hub,
		publisher,
		sf,
		cfg.MinImageBytes,
		cfg.MaxImageBytes,
	)
	deviceUC := usecase.NewDeviceUsecase(deviceRepo, hub)

	// --- Handlers ---
	sigHandler := handler.NewSignatureHandler(pairingSvc, sessionUC, deviceUC, artifactStore)
	wsHandler := handler.NewTabletWSHandler(hub, deviceUC, sessionUC)

	// --- Router ---
	r := chi.NewRouter()
	r = router.SetupRoutes(r, sigHandler, wsHandler, redisCache).(*chi.Mux)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
}
