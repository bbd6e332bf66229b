package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	"github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/AdrianPopi/acont/internal/product/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(conn),
	})
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := setupService(t)
	ctx := merchantcontext.WithMerchantID(context.Background(), 7)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:      "SRV-01",
		Name:      "Consulting hour",
		UnitPrice: decimal.RequireFromString("75.5"),
		VATRate:   decimal.NewFromInt(21),
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "SRV-01", got.Code)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("75.5")), got.UnitPrice.String())
	assert.True(t, got.VATRate.Equal(decimal.NewFromInt(21)), got.VATRate.String())

	list, err := svc.List(ctx, domain.ListRequest{Code: "SRV-01"})
	require.NoError(t, err)
	assert.Len(t, list.Products, 1)
	assert.False(t, list.HasMore)
}

func TestCreateProductValidation(t *testing.T) {
	svc := setupService(t)
	ctx := merchantcontext.WithMerchantID(context.Background(), 7)

	_, err := svc.Create(ctx, domain.CreateRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", UnitPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", VATRate: decimal.NewFromInt(101)})
	assert.ErrorIs(t, err, domain.ErrInvalidVATRate)

	_, err = svc.Get(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
