// Package handler exposes the pricing service over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/offer-engine/internal/domain/auth"
	"github.com/xenking/offer-engine/internal/domain/offer"
	"github.com/xenking/offer-engine/internal/domain/pricing"
)

// APIKeyHeader carries the raw key for authenticated routes.
const APIKeyHeader = "api_key"

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// Pricing is the subset of *pricing.Service the handlers call.
type Pricing interface {
	GetApplicableOffers(ctx context.Context, productIDs []string, includeAutoApply, includeCouponOnly bool) ([]offer.Offer, error)
	ValidateCoupon(ctx context.Context, code string, productIDs []string) (*offer.Validation, error)
	Resolve(ctx context.Context, cart pricing.Cart) (*pricing.Quote, error)
}

// Authenticator checks raw API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key, scope string) (*auth.APIKeyInfo, error)
}

var (
	_ Pricing       = (*pricing.Service)(nil)
	_ Authenticator = (*auth.Authenticator)(nil)
)

// Handler serves the offer API.
type Handler struct {
	pricing Pricing
	auth    Authenticator
}

// NewHandler constructs a Handler.
func NewHandler(p Pricing, a Authenticator) *Handler {
	return &Handler{pricing: p, auth: a}
}

// Routes returns the API router, meant to be mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/offers/applicable", h.ApplicableOffers)
	r.Post("/quotes", h.CreateQuote)
	r.With(h.RequireAPIKey(auth.ScopePreview)).Post("/coupons/validate", h.ValidateCoupon)
	return r
}

// RoutePattern reports the chi route template matched for r.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
