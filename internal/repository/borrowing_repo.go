package repository

import (
	"context"
	"time"

	"go-school-library/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BorrowingFilter narrows borrowing listings. Zero values mean no filter.
type BorrowingFilter struct {
	UserID *uuid.UUID
	BookID *uuid.UUID
	Status model.BorrowingStatus
	From   *time.Time // request_date lower bound, inclusive
	To     *time.Time // request_date upper bound, inclusive
	Limit  int
	Offset int
}

type BorrowingRepository interface {
	FindByID(id uuid.UUID) (*model.Borrowing, error)
	FindAll(filter BorrowingFilter) ([]model.Borrowing, int64, error)
	CountOpenByBook(bookID uuid.UUID) (int64, error)
	FindSweepable(ctx context.Context, today time.Time) ([]uuid.UUID, error)

	// Methods below run inside the caller's transaction.
	Create(tx *gorm.DB, b *model.Borrowing) error
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Borrowing, error)
	Save(tx *gorm.DB, b *model.Borrowing) error
	CountOpenByUser(tx *gorm.DB, userID uuid.UUID) (int64, error)
	HasOpenForBook(tx *gorm.DB, userID, bookID uuid.UUID) (bool, error)
}

type borrowingRepo struct {
	db *gorm.DB
}

func NewBorrowingRepo(db *gorm.DB) BorrowingRepository {
	return &borrowingRepo{db}
}

func (r *borrowingRepo) FindByID(id uuid.UUID) (*model.Borrowing, error) {
	var b model.Borrowing
	err := r.db.Preload("Book").Preload("User").First(&b, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "find borrowing")
	}
	return &b, nil
}

func (r *borrowingRepo) FindAll(filter BorrowingFilter) ([]model.Borrowing, int64, error) {
	query := r.db.Model(&model.Borrowing{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BookID != nil {
		query = query.Where("book_id = ?", *filter.BookID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("request_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("request_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var items []model.Borrowing
	err := query.Preload("Book").Preload("User").
		Order("request_date DESC").Order("created_at DESC").
		Find(&items).Error
	return items, total, err
}

func (r *borrowingRepo) CountOpenByBook(bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Borrowing{}).
		Where("book_id = ? AND status IN ?", bookID, model.OpenStatuses).
		Count(&count).Error
	return count, err
}

// FindSweepable returns the loans the daily sweep may act on: still holding a copy
// and due on or before today. Oldest due date first.
func (r *borrowingRepo) FindSweepable(ctx context.Context, today time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Borrowing{}).
		Where("status IN ? AND due_date <= ?", model.ActiveStatuses, today).
		Order("due_date ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *borrowingRepo) Create(tx *gorm.DB, b *model.Borrowing) error {
	return translate(tx.Omit(clause.Associations).Create(b).Error, "create borrowing")
}

func (r *borrowingRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Borrowing, error) {
	var b model.Borrowing
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find borrowing")
	}
	return &b, nil
}

func (r *borrowingRepo) Save(tx *gorm.DB, b *model.Borrowing) error {
	return translate(tx.Omit(clause.Associations).Save(b).Error, "save borrowing")
}

func (r *borrowingRepo) CountOpenByUser(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&model.Borrowing{}).
		Where("user_id = ? AND status IN ?", userID, model.OpenStatuses).
		Count(&count).Error
	return count, err
}

func (r *borrowingRepo) HasOpenForBook(tx *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Borrowing{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID, model.OpenStatuses).
		Count(&count).Error
	return count > 0, err
}
