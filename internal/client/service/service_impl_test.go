package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/client/repository"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/merchantcontext"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&domain.Client{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	return New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(conn),
	}), fake
}

func TestCreateAndGetClient(t *testing.T) {
	svc, _ := setupService(t)
	ctx := merchantcontext.WithMerchantID(context.Background(), 42)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:    "  Atelier Dupont  ",
		Email:   "billing@dupont.be",
		TaxID:   "BE0123456789",
		Address: strings.Repeat("x", 600),
	})
	require.NoError(t, err)
	assert.Equal(t, "Atelier Dupont", created.Name)
	assert.Len(t, created.Address, 512)

	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "BE0123456789", got.TaxID)

	other := merchantcontext.WithMerchantID(context.Background(), 43)
	_, err = svc.Get(other, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateClientValidation(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidMerchant)

	ctx := merchantcontext.WithMerchantID(context.Background(), 42)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListClientsPaginates(t *testing.T) {
	svc, fake := setupService(t)
	ctx := merchantcontext.WithMerchantID(context.Background(), 42)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: fmt.Sprintf("client %d", i)})
		require.NoError(t, err)
		fake.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Clients, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "client 2", first.Clients[0].Name)

	second, err := svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Clients, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "client 0", second.Clients[0].Name)
}

func TestListClientsByNamePrefix(t *testing.T) {
	svc, _ := setupService(t)
	ctx := merchantcontext.WithMerchantID(context.Background(), 42)
	other := merchantcontext.WithMerchantID(context.Background(), 7)

	for _, name := range []string{"Atelier Dupont", "atelier Martin", "Boulangerie Ghent"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name})
		require.NoError(t, err)
	}
	_, err := svc.Create(other, domain.CreateRequest{Name: "Atelier Ailleurs"})
	require.NoError(t, err)

	list, err := svc.List(ctx, domain.ListRequest{Name: "ATELIER"})
	require.NoError(t, err)
	assert.Len(t, list.Clients, 2)
	assert.False(t, list.HasMore)
}
