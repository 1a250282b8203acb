package http

import (
	_ "github.com/outletiq/reco-backend/docs" // Импорт сгенерированных файлов
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(
	recommendUC usecase.RecommendUC,
	interactionUC usecase.InteractionUC,
	ingestUC usecase.IngestUC,
	builderUC usecase.BuilderUC,
) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerRecommendationRoutes(v1, NewRecommendHandler(recommendUC, r.logger))
		registerInteractionRoutes(v1, NewInteractionHandler(interactionUC, r.logger))
		registerProductRoutes(v1, NewProductHandler(ingestUC, r.logger))
		registerAdminRoutes(v1, NewAdminHandler(builderUC, r.logger))
	})
}

func registerRecommendationRoutes(router chi.Router, h *RecommendHandler) {
	router.Route("/recommendations", func(rec chi.Router) {
		rec.Get("/popular", h.popular)
		rec.Get("/trending", h.trending)
		rec.Get("/index/stats", h.indexStats)
		rec.Get("/products/{product_id}", h.byProduct)
		rec.Get("/products/{product_id}/similar-images", h.similarImages)
		rec.Get("/sessions/{session_id}", h.personalized)
	})
}

func registerInteractionRoutes(router chi.Router, h *InteractionHandler) {
	router.Route("/interactions", func(in chi.Router) {
		in.Post("/", h.record)
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Post("/", h.registerProduct)
	})
}

func registerAdminRoutes(router chi.Router, h *AdminHandler) {
	router.Route("/admin/rebuild", func(ad chi.Router) {
		ad.Post("/similarity", h.rebuildSimilarityCache)
		ad.Post("/index", h.rebuildIndex)
	})
}
