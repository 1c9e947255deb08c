package catalog

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	domcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const catalogService = "catalog-service"

type IDGenerator interface {
	NewID() string
}

// ProductInput carries the admin-editable fields. Stock is only honoured on create.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Description string
	ImageURL    string
}

// Service exposes public browsing and admin product management.
type Service struct {
	browse domcatalog.Reader
	repo   domcatalog.Repository
	ids    IDGenerator
	guard  *access.Guard
	inst   *application.Instrument
}

// NewService takes the cached browse path and the guarded authoritative repository separately.
func NewService(browse domcatalog.Reader, repo domcatalog.Repository, ids IDGenerator, guard *access.Guard, tel observability.Observability) *Service {
	return &Service{
		browse: browse,
		repo:   repo,
		ids:    ids,
		guard:  guard,
		inst:   application.NewInstrument(catalogService, tel),
	}
}

func (s *Service) List(ctx context.Context, f domcatalog.ListFilter) (_ []*domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.list", "ListProducts", attribute.String("catalog.category", f.Category))
	defer func() { run.End(err) }()

	products, err := s.browse.List(ctx, f)
	if err != nil {
		return nil, err
	}
	run.Annotate(observability.F("count", len(products)))
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (_ *domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.get", "GetProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	return s.browse.Get(ctx, id)
}

// LowStock lists products at or below the low-stock threshold for the admin dashboard.
func (s *Service) LowStock(ctx context.Context) (_ []*domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.low_stock", "ListLowStock")
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx, domcatalog.ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]*domcatalog.Product, 0)
	for _, p := range all {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in ProductInput) (_ *domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.create", "CreateProduct")
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	p, err := domcatalog.New(s.ids.NewID(), in.Name, in.Price, in.Stock)
	if err != nil {
		return nil, err
	}
	p.Category = strings.TrimSpace(in.Category)
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	run.Annotate(observability.F("product_id", p.ID))
	return p, nil
}

// Update edits everything but stock; stock changes go through SetStock.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (_ *domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.update", "UpdateProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.Category = strings.TrimSpace(in.Category)
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// SetStock is the admin direct set of a product's stock.
func (s *Service) SetStock(ctx context.Context, id string, stock int) (_ *domcatalog.Product, err error) {
	ctx, run := s.inst.Start(ctx, "catalog.set_stock", "SetStock",
		attribute.String("product.id", id),
		attribute.Int("product.stock", stock),
	)
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, domain.Validation("stock must be zero or greater")
	}
	if err := s.repo.SetStock(ctx, id, stock); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, run := s.inst.Start(ctx, "catalog.delete", "DeleteProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	if _, err = s.guard.Require(ctx, access.Admin...); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
