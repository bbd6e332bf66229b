package service

import (
	"context"
	"strings"

	"github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	"github.com/AdrianPopi/acont/pkg/repository"
	"github.com/bwmarrin/snowflake"
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
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Client, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidMerchant
	}

	name := document.Clip(req.Name, document.MaxNameLen)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	email := document.Clip(req.Email, document.MaxEmailLen)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Client{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:         s.genID.Generate(),
		MerchantID: merchantID,
		Name:       name,
		Email:      email,
		TaxID:      document.Clip(req.TaxID, document.MaxTaxIDLen),
		Address:    document.Clip(req.Address, document.MaxAddressLen),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, &client); err != nil {
		return domain.Client{}, err
	}

	s.log.Debug("client created", zap.String("client_id", client.ID.String()))
	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidMerchant
	}

	clients, pageInfo, err := s.repo.List(ctx, merchantID, req.Pagination, repository.HasPrefix("name", req.Name))
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Client, error) {
	merchantID, ok := merchantcontext.MerchantIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidMerchant
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || clientID == 0 {
		return domain.Client{}, domain.ErrInvalidID
	}

	item, err := s.repo.Get(ctx, merchantID, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}
