package repository

import (
	"errors"
	"strings"

	"go-school-library/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookFilter narrows catalog listings. Zero values mean no filter.
type BookFilter struct {
	Search        string // title, author or ISBN
	CategoryID    *uuid.UUID
	AvailableOnly bool
	Limit         int
	Offset        int
}

type BookRepository interface {
	Create(book *model.Book) error
	Update(book *model.Book) error
	Delete(id uuid.UUID, deletedBy string) error
	FindByID(id uuid.UUID) (*model.Book, error)
	FindBySlug(slug string) (*model.Book, error)
	FindByISBN(isbn string) (*model.Book, error)
	FindAll(filter BookFilter) ([]model.Book, int64, error)
	SlugExists(slug string, exceptID uuid.UUID) (bool, error)
	CountByCategory(categoryID uuid.UUID) (int64, error)

	// Methods below run inside the caller's transaction.
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Book, error)
	Save(tx *gorm.DB, book *model.Book) error
	Reserve(tx *gorm.DB, id uuid.UUID) error
	Release(tx *gorm.DB, id uuid.UUID) (clamped bool, err error)
}

type bookRepo struct {
	db *gorm.DB
}

func NewBookRepo(db *gorm.DB) BookRepository {
	return &bookRepo{db}
}

func (r *bookRepo) Create(book *model.Book) error {
	return translate(r.db.Create(book).Error, "create book")
}

func (r *bookRepo) Update(book *model.Book) error {
	return translate(r.db.Omit(clause.Associations).Save(book).Error, "update book")
}

func (r *bookRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Book{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Book{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *bookRepo) FindByID(id uuid.UUID) (*model.Book, error) {
	var book model.Book
	if err := r.db.Preload("Category").First(&book, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find book")
	}
	return &book, nil
}

func (r *bookRepo) FindBySlug(slug string) (*model.Book, error) {
	var book model.Book
	if err := r.db.Preload("Category").Where("slug = ?", slug).First(&book).Error; err != nil {
		return nil, translate(err, "find book")
	}
	return &book, nil
}

func (r *bookRepo) FindByISBN(isbn string) (*model.Book, error) {
	var book model.Book
	if err := r.db.Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, translate(err, "find book")
	}
	return &book, nil
}

func (r *bookRepo) FindAll(filter BookFilter) ([]model.Book, int64, error) {
	query := r.db.Model(&model.Book{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR isbn LIKE ?", like, like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var books []model.Book
	err := query.Preload("Category").Order("title ASC").Find(&books).Error
	return books, total, err
}

func (r *bookRepo) SlugExists(slug string, exceptID uuid.UUID) (bool, error) {
	var count int64
	// Unscoped: soft-deleted rows still hold the unique index.
	err := r.db.Unscoped().Model(&model.Book{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *bookRepo) CountByCategory(categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Book{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *bookRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Book, error) {
	var book model.Book
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find book")
	}
	return &book, nil
}

func (r *bookRepo) Save(tx *gorm.DB, book *model.Book) error {
	return translate(tx.Omit(clause.Associations).Save(book).Error, "save book")
}

// Reserve takes one copy off the shelf. The check and the decrement are a single
// conditional UPDATE, so concurrent reservations can never drive the count below zero.
func (r *bookRepo) Reserve(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Model(&model.Book{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if err := r.exists(tx, id); err != nil {
		return err
	}
	return ErrOutOfStock
}

// Release puts one copy back. It never raises the count above total_copies; clamped
// reports that the increment was dropped for that reason.
func (r *bookRepo) Release(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.Book{}).
		Where("id = ? AND available_copies < total_copies", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return false, nil
	}
	if err := r.exists(tx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (r *bookRepo) exists(tx *gorm.DB, id uuid.UUID) error {
	var book model.Book
	err := tx.Select("id").First(&book, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
