package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

const instrumentationName = "github.com/xenking/offer-engine/internal/domain/pricing"

// Sentinel errors for cart validation.
var (
	ErrEmptyItems = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// DuplicateLineError indicates two cart items resolve to the same line id,
// either explicitly or through the positional default.
type DuplicateLineError struct {
	LineID string
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("duplicate line id %q", e.LineID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Item is a requested cart line.
type Item struct {
	// LineID identifies the line in the returned plan. Defaults to the
	// 1-based position of the item and must be unique within the cart.
	LineID    string
	ProductID string
	Quantity  int
}

// Cart is the input of Resolve.
type Cart struct {
	Items      []Item
	CouponCode string
}

// Quote reports the automatic discount plan for a cart and, separately, the
// verdict for a submitted coupon. The two are never combined.
type Quote struct {
	Lines    []offer.Line
	Products []catalog.Product
	Subtotal decimal.Decimal
	Plan     *offer.Plan
	// Coupon is nil when no code was submitted.
	Coupon *offer.Validation
}

// Service evaluates offers against carts using the offer store and catalog.
type Service struct {
	offers          offer.Repository
	products        catalog.Repository
	now             func() time.Time
	sampleUnitPrice decimal.Decimal

	tracer        trace.Tracer
	resolvedLines metric.Int64Counter
	validations   metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSampleUnitPrice overrides the reference price used for coupon previews
// without products.
func WithSampleUnitPrice(p decimal.Decimal) Option {
	return func(s *Service) { s.sampleUnitPrice = p }
}

// WithTracerProvider sets the tracer provider used for spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// NewService creates a pricing Service. Metrics are recorded with meter.
func NewService(
	offers offer.Repository,
	products catalog.Repository,
	meter metric.Meter,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		offers:          offers,
		products:        products,
		now:             time.Now,
		sampleUnitPrice: offer.DefaultSampleUnitPrice,
		tracer:          otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.resolvedLines, err = meter.Int64Counter("offers.resolved_lines",
		metric.WithDescription("Cart lines that received an automatic offer"),
	); err != nil {
		return nil, errors.Wrap(err, "create resolved lines counter")
	}
	if s.validations, err = meter.Int64Counter("coupons.validations",
		metric.WithDescription("Coupon validations by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create validations counter")
	}
	return s, nil
}

// GetApplicableOffers returns valid offers whose scope covers any of the
// given products. includeAutoApply selects automatic offers and
// includeCouponOnly selects coupon-gated ones.
func (s *Service) GetApplicableOffers(
	ctx context.Context,
	productIDs []string,
	includeAutoApply, includeCouponOnly bool,
) ([]offer.Offer, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.GetApplicableOffers")
	defer span.End()

	items := make([]Item, len(productIDs))
	for i, id := range productIDs {
		items[i] = Item{ProductID: id, Quantity: 1}
	}

	var (
		lines  []offer.Line
		offers []offer.Offer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lines, _, err = s.buildLines(gctx, items)
		return err
	})
	g.Go(func() (err error) {
		offers, err = s.listOffers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := offer.Applicable(lines, offers, s.now(), includeAutoApply, includeCouponOnly)
	zctx.From(ctx).Debug("Applicable offers",
		zap.Int("products", len(productIDs)),
		zap.Bool("auto_apply", includeAutoApply),
		zap.Bool("coupon_only", includeCouponOnly),
		zap.Int("offers", len(out)),
	)
	return out, nil
}

// ValidateCoupon validates code against the given products, each priced at
// its catalog price with quantity 1. Without products the returned amount is
// an illustrative preview.
func (s *Service) ValidateCoupon(ctx context.Context, code string, productIDs []string) (*offer.Validation, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.ValidateCoupon")
	defer span.End()

	items := make([]Item, len(productIDs))
	for i, id := range productIDs {
		items[i] = Item{ProductID: id, Quantity: 1}
	}
	lines, _, offers, err := s.load(ctx, items)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, code, offers, lines, s.now()), nil
}

// Resolve computes the automatic discount plan for the cart and validates the
// submitted coupon code, if any.
func (s *Service) Resolve(ctx context.Context, cart Cart) (*Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.Resolve")
	defer span.End()

	if len(cart.Items) == 0 {
		return nil, ErrEmptyItems
	}
	seen := make(map[string]struct{}, len(cart.Items))
	for i, item := range cart.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		id := lineID(item, i)
		if _, ok := seen[id]; ok {
			return nil, &DuplicateLineError{LineID: id}
		}
		seen[id] = struct{}{}
	}

	lines, products, offers, err := s.load(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	// The plan and the coupon verdict share one snapshot and one instant.
	now := s.now()
	plan := offer.ResolveAutomatic(lines, offers, now)
	selected := len(plan.Selections())
	s.resolvedLines.Add(ctx, int64(selected))

	q := &Quote{
		Lines:    lines,
		Products: products,
		Subtotal: subtotal(lines),
		Plan:     plan,
	}

	if cart.CouponCode != "" {
		q.Coupon = s.validate(ctx, cart.CouponCode, offers, lines, now)
	}

	span.SetAttributes(
		attribute.Int("cart.lines", len(lines)),
		attribute.Int("cart.discounted_lines", selected),
	)
	zctx.From(ctx).Debug("Resolved cart",
		zap.Int("lines", len(lines)),
		zap.Int("discounted_lines", selected),
		zap.Stringer("automatic_discount", plan.Total()),
	)
	return q, nil
}

func (s *Service) validate(ctx context.Context, code string, offers []offer.Offer, lines []offer.Line, now time.Time) *offer.Validation {
	v := offer.ValidateCoupon(code, offers, lines, now, s.sampleUnitPrice)
	s.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(&v))))
	return &v
}

// load builds the cart lines and reads the offer snapshot concurrently.
func (s *Service) load(ctx context.Context, items []Item) ([]offer.Line, []catalog.Product, []offer.Offer, error) {
	var (
		lines    []offer.Line
		products []catalog.Product
		offers   []offer.Offer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lines, products, err = s.buildLines(gctx, items)
		return err
	})
	g.Go(func() (err error) {
		offers, err = s.listOffers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return lines, products, offers, nil
}

func (s *Service) listOffers(ctx context.Context) ([]offer.Offer, error) {
	offers, err := s.offers.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	return offers, nil
}

// buildLines fetches the products referenced by items in a single batch and
// turns them into cart lines, preserving item order. The returned products
// are in item order as well.
func (s *Service) buildLines(ctx context.Context, items []Item) ([]offer.Line, []catalog.Product, error) {
	if len(items) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]offer.Line, len(items))
	products := make([]catalog.Product, len(items))
	for i, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		lines[i] = offer.Line{
			ID:         lineID(item, i),
			ProductID:  p.ID,
			CategoryID: p.CategoryID,
			Quantity:   item.Quantity,
			UnitPrice:  p.Price,
		}
		products[i] = p
	}
	return lines, products, nil
}

func lineID(item Item, i int) string {
	if item.LineID != "" {
		return item.LineID
	}
	return strconv.Itoa(i + 1)
}

func subtotal(lines []offer.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func outcome(v *offer.Validation) string {
	switch {
	case v.Valid:
		return "valid"
	case v.Reason == offer.ReasonNotApplicable:
		return "not_applicable"
	default:
		return "invalid"
	}
}
