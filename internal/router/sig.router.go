package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"signature-service/internal/handler"
	"signature-service/internal/middleware"
	"signature-service/pkg/cache"
)

func SetupRoutes(
	r chi.Router,
	h *handler.SignatureHandler,
	wsh *handler.TabletWSHandler,
	rdb *cache.Cache,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Company-ID", "X-User-ID", "X-Workstation-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(api chi.Router) {
		// ============================================================
		// Public Endpoints (tablet has no identity headers yet)
		// ============================================================
		api.Group(func(pub chi.Router) {
			pub.Get("/health", h.Health)

			// Pairing redemption: tablet only holds the short code, so
			// guessing attempts are throttled per client.
			pub.With(middleware.RateLimit(rdb, 10, time.Minute, "pair")).
				Post("/tablets/pair", h.HandlePairTablet)

			// Tablet transport: authenticated by device token, not headers.
			pub.Get("/tablets/ws", wsh.HandleWS)
			pub.Post("/signatures/submit", h.HandleSubmitSignature)
		})

		// ============================================================
		// Workstation Endpoints (gateway identity headers required)
		// ============================================================
		api.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireIdentity)

			pr.Post("/tablets/register", h.HandleRegisterTablet)
			pr.Get("/tablets/pairing/{code}/status", h.HandlePairingStatus)
			pr.Get("/tablets", h.HandleListTablets)
			pr.Post("/tablets/{tabletId}/test", h.HandleTestTablet)
			pr.Post("/tablets/{tabletId}/revoke", h.HandleRevokeTablet)
			pr.Delete("/tablets/{tabletId}", h.HandleUnpairTablet)

			pr.Post("/signatures/sessions", h.HandleCreateSession)
			pr.Get("/signatures/sessions/{sessionId}/status", h.HandleSessionStatus)
			pr.Post("/signatures/sessions/{sessionId}/cancel", h.HandleCancelSession)
			pr.Get("/signatures/{sessionId}/image", h.HandleDownloadImage)
			pr.Delete("/signatures/{sessionId}/cache", h.HandleEvictArtifact)
			pr.Get("/signatures/cache/stats", h.HandleCacheStats)
		})
	})

	return r
}
