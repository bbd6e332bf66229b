package repository

import (
	"context"
	"time"

	"github.com/AdrianPopi/acont/internal/creditnote/domain"
	"github.com/AdrianPopi/acont/internal/document"
	"github.com/AdrianPopi/acont/pkg/db"
	"github.com/AdrianPopi/acont/pkg/db/option"
	"github.com/AdrianPopi/acont/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, note *domain.CreditNote, items []domain.CreditNoteItem) error {
	if err := conn.WithContext(ctx).Create(note).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) (*domain.CreditNote, error) {
	return r.find(conn.WithContext(ctx), merchantID, id)
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) (*domain.CreditNote, error) {
	stmt := conn.WithContext(ctx)
	if !db.IsSQLite(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, merchantID, id)
}

func (r *repo) find(stmt *gorm.DB, merchantID, id snowflake.ID) (*domain.CreditNote, error) {
	var note domain.CreditNote
	err := stmt.
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Limit(1).
		Find(&note).Error
	if err != nil {
		return nil, err
	}
	if note.ID == 0 {
		return nil, nil
	}
	return &note, nil
}

func (r *repo) ListItems(ctx context.Context, conn *gorm.DB, creditNoteID snowflake.ID) ([]domain.CreditNoteItem, error) {
	var items []domain.CreditNoteItem
	err := conn.WithContext(ctx).
		Where("credit_note_id = ?", creditNoteID).
		Order("position asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, merchantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.CreditNote, error) {
	var notes []*domain.CreditNote
	stmt := conn.WithContext(ctx).
		Model(&domain.CreditNote{}).
		Where("merchant_id = ?", merchantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.InvoiceID != nil {
		stmt = stmt.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Year > 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	stmt = option.ApplyKeyset(page, "issue_date").Apply(stmt)
	if err := stmt.Order("issue_date desc, id desc").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repo) LastIssuedDate(ctx context.Context, conn *gorm.DB, merchantID snowflake.ID) (*time.Time, error) {
	var note domain.CreditNote
	err := conn.WithContext(ctx).
		Select("id", "issue_date").
		Where("merchant_id = ? AND number IS NOT NULL", merchantID).
		Order("issue_date desc, id desc").
		Limit(1).
		Find(&note).Error
	if err != nil {
		return nil, err
	}
	if note.ID == 0 {
		return nil, nil
	}
	issued := note.IssueDate
	return &issued, nil
}

func (r *repo) IssuedGrossForInvoice(ctx context.Context, conn *gorm.DB, merchantID, invoiceID snowflake.ID) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := conn.WithContext(ctx).
		Model(&domain.CreditNote{}).
		Where("merchant_id = ? AND invoice_id = ? AND status = ?", merchantID, invoiceID, document.StatusIssued).
		Pluck("total_gross", &amounts).Error
	return amounts, err
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, note *domain.CreditNote) error {
	return conn.WithContext(ctx).Save(note).Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, merchantID, id snowflake.ID) error {
	if err := conn.WithContext(ctx).
		Where("credit_note_id = ?", id).
		Delete(&domain.CreditNoteItem{}).Error; err != nil {
		return err
	}
	res := conn.WithContext(ctx).
		Where("merchant_id = ? AND id = ? AND status = ?", merchantID, id, document.StatusDraft).
		Delete(&domain.CreditNote{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrNotDraft
	}
	return nil
}
