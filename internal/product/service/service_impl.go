package service

import (
	"context"
	"strings"

	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	"github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/AdrianPopi/acont/internal/totals"
	"github.com/AdrianPopi/acont/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("product.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

var maxVATRate = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.Product{}, domain.ErrInvalidMerchant
	}

	name := document.Clip(req.Name, document.MaxNameLen)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.UnitPrice.IsNegative() {
		return domain.Product{}, domain.ErrInvalidUnitPrice
	}
	if req.VATRate.IsNegative() || req.VATRate.GreaterThan(maxVATRate) {
		return domain.Product{}, domain.ErrInvalidVATRate
	}

	now := s.clock.Now()
	p := domain.Product{
		ID:          s.genID.Generate(),
		MerchantID:  merchantID,
		Code:        document.Clip(req.Code, document.MaxItemCodeLen),
		Name:        name,
		Description: document.Clip(req.Description, document.MaxDescriptionLen),
		UnitPrice:   totals.Round(req.UnitPrice),
		VATRate:     totals.RoundRate(req.VATRate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidMerchant
	}

	products, pageInfo, err := s.repo.List(ctx, merchantID, req.Pagination, repository.Equals("code", req.Code))
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{PageInfo: pageInfo, Products: products}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.Product{}, domain.ErrInvalidMerchant
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || productID == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.Get(ctx, merchantID, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}
