package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nftennis/nftennis-backend/api/controllers"
	"github.com/nftennis/nftennis-backend/api/middleware"
	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/internal/auctions"
	"github.com/nftennis/nftennis-backend/internal/auth"
	"github.com/nftennis/nftennis-backend/internal/marketplace"
	"github.com/nftennis/nftennis-backend/internal/mint"
	"github.com/nftennis/nftennis-backend/internal/nfts"
	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/redis"
)

// Deps carries everything the router wires into controllers. Nil services
// produce 500s on their routes rather than panics.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Activity    *activity.Repository
	Auth        auth.Service
	Marketplace marketplace.Service
	NFTs        nfts.Service
	Auctions    auctions.Service
	Mint        mint.Pipeline
	Gatherer    prometheus.Gatherer
	ReadyChecks []controllers.ReadyCheck
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.ReadyChecks...))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var idempotencyStore redis.IdempotencyStore
	var rateStore middleware.RateLimitStore
	if d.Redis != nil {
		idempotencyStore = d.Redis
		rateStore = d.Redis
	}
	var events controllers.EventReader
	var pins controllers.PinReader
	if d.Activity != nil {
		events = d.Activity
		pins = d.Activity
	}
	writePolicy := middleware.NewWriteRateLimitPolicy(cfg.RateLimit.Window, cfg.RateLimit.Limit)

	// Writes act as the signed-in wallet; reads are public.
	writes := []func(http.Handler) http.Handler{
		middleware.Auth(cfg.JWT, logg),
		middleware.WriteRateLimit(writePolicy, rateStore, logg),
		middleware.Idempotency(idempotencyStore, cfg.RateLimit.IdempotencyTTL, logg),
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.WriteRateLimit(writePolicy, rateStore, logg))
			r.Post("/challenge", controllers.AuthChallenge(d.Auth, logg))
			r.Post("/verify", controllers.AuthVerify(d.Auth, logg))
		})

		r.With(writes...).Post("/mint", controllers.MintUpload(d.Mint, cfg.Media.MaxUploadBytes(), logg))
		r.Get("/pins", controllers.ListPins(pins, logg))

		r.Route("/nfts", func(r chi.Router) {
			r.Get("/", controllers.ListNFTs(d.Marketplace, logg))
			r.With(writes...).Post("/mint", controllers.MintNFT(d.NFTs, logg))
			r.Get("/active-auctions", controllers.ActiveAuctions(d.Marketplace, logg))
			r.Get("/owned/{address}", controllers.OwnedNFTs(d.Marketplace, logg))
			r.Get("/rarity/{rarity}", controllers.RarityName(d.NFTs, logg))

			r.Route("/auction", func(r chi.Router) {
				w := r.With(writes...)
				w.Post("/start", controllers.AuctionStart(d.Auctions, logg))
				w.Post("/bid", controllers.AuctionBid(d.Auctions, logg))
				w.Post("/buy", controllers.AuctionBuyNow(d.Auctions, logg))
				w.Post("/end", controllers.AuctionEnd(d.Auctions, logg))
				r.Get("/{tokenId}", controllers.AuctionGet(d.Auctions, logg))
			})

			r.Get("/{tokenId}", controllers.NFTDetail(d.Marketplace, logg))
			r.Get("/{tokenId}/history", controllers.TokenHistory(events, logg))
		})
	})

	return r
}
