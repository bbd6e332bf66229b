package repository

import (
	"context"
	"time"

	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/internal/invoice/domain"
	"github.com/AdrianPopi/acont/pkg/db"
	"github.com/AdrianPopi/acont/pkg/db/option"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice, items []domain.InvoiceItem) error {
	if err := conn.WithContext(ctx).Create(invoice).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) (*domain.Invoice, error) {
	stmt := conn.WithContext(ctx)
	if !db.IsSQLite(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var invoice domain.Invoice
	err := stmt.
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListItems(ctx context.Context, conn *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := conn.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("position asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, merchantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("merchant_id = ?", merchantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Year > 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	stmt = option.ApplyKeyset(page, "issue_date").Apply(stmt)
	err := stmt.
		Order("issue_date desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListIssuedForClient(ctx context.Context, conn *gorm.DB, merchantID, clientID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := conn.WithContext(ctx).
		Where("merchant_id = ? AND client_id = ? AND status = ?", merchantID, clientID, document.StatusIssued).
		Order("issue_date desc, id desc").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) LastIssuedDate(ctx context.Context, conn *gorm.DB, merchantID snowflake.ID) (*time.Time, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Select("id", "issue_date").
		Where("merchant_id = ? AND number IS NOT NULL", merchantID).
		Order("issue_date desc, id desc").
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	issued := invoice.IssueDate
	return &issued, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return conn.WithContext(ctx).Save(invoice).Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) error {
	if err := conn.WithContext(ctx).
		Where("invoice_id = ?", id).
		Delete(&domain.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := conn.WithContext(ctx).
		Where("merchant_id = ? AND id = ? AND status = ?", merchantID, id, document.StatusDraft).
		Delete(&domain.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrNotDraft
	}
	return nil
}
