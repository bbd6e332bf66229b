package domain

import (
	"context"
	"errors"

	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (Product, error)
}

type CreateRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

type ListRequest struct {
	pagination.Pagination
	Code string
}

type ListResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

var (
	ErrInvalidMerchant  = errors.New("invalid_merchant")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvalidVATRate   = errors.New("invalid_vat_rate")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
)
