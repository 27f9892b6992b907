package service

import (
	"errors"
	"strings"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogService interface {
	CreateBook(req *BookRequest, actorID string) (*model.Book, error)
	UpdateBook(id uuid.UUID, req *BookRequest, actorID string) (*model.Book, error)
	DeleteBook(id uuid.UUID, actorID string) error
	GetBook(id uuid.UUID) (*model.Book, error)
	GetBookBySlug(slug string) (*model.Book, error)
	ListBooks(filter repository.BookFilter) ([]model.Book, int64, error)
}

type BookRequest struct {
	Title         string     `json:"title" validate:"required,max=255"`
	Author        string     `json:"author" validate:"required,max=255"`
	Publisher     string     `json:"publisher" validate:"max=255"`
	ISBN          string     `json:"isbn" validate:"required,isbn_code"`
	PublishedYear int        `json:"published_year" validate:"omitempty,min=1000,max=9999"`
	CategoryID    *uuid.UUID `json:"category_id"`
	Description   string     `json:"description"`
	CoverURL      string     `json:"cover_url" validate:"omitempty,url,max=500"`
	TotalCopies   int        `json:"total_copies" validate:"min=0,max=100000"`
}

type catalogService struct {
	bookRepo      repository.BookRepository
	categoryRepo  repository.CategoryRepository
	borrowingRepo repository.BorrowingRepository
	db            *gorm.DB
	pusher        Pusher
	log           *zap.Logger
}

func NewCatalogService(
	bookRepo repository.BookRepository,
	categoryRepo repository.CategoryRepository,
	borrowingRepo repository.BorrowingRepository,
	db *gorm.DB,
	pusher Pusher,
	log *zap.Logger,
) CatalogService {
	return &catalogService{
		bookRepo:      bookRepo,
		categoryRepo:  categoryRepo,
		borrowingRepo: borrowingRepo,
		db:            db,
		pusher:        pusher,
		log:           log,
	}
}

func (s *catalogService) CreateBook(req *BookRequest, actorID string) (*model.Book, error) {
	// 1. Validasi Struct Dasar
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	isbn := validator.NormalizeISBN(req.ISBN)

	// 2. Cek Duplikasi ISBN
	if err := s.ensureISBNFree(isbn, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(req.CategoryID); err != nil {
		return nil, err
	}

	// 3. Slug
	slug, err := uniqueSlug(req.Title, "buku", uuid.Nil, s.bookRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	// 4. Simpan ke Database
	book := &model.Book{
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Author:          strings.TrimSpace(req.Author),
		Publisher:       req.Publisher,
		ISBN:            isbn,
		PublishedYear:   req.PublishedYear,
		CategoryID:      req.CategoryID,
		Description:     req.Description,
		CoverURL:        req.CoverURL,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	}
	book.Audit(actorID)
	if err := s.bookRepo.Create(book); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrISBNExists
		}
		return nil, err
	}

	s.broadcast("book_created", book)
	return s.bookRepo.FindByID(book.ID)
}

// UpdateBook edits catalog data. Changing TotalCopies shifts AvailableCopies by the
// same amount, so copies on loan stay accounted for.
func (s *catalogService) UpdateBook(id uuid.UUID, req *BookRequest, actorID string) (*model.Book, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	isbn := validator.NormalizeISBN(req.ISBN)

	existing, err := s.bookRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	if err := s.ensureISBNFree(isbn, id); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(req.CategoryID); err != nil {
		return nil, err
	}
	slug := existing.Slug
	if strings.TrimSpace(req.Title) != existing.Title {
		if slug, err = uniqueSlug(req.Title, "buku", id, s.bookRepo.SlugExists); err != nil {
			return nil, err
		}
	}

	var updated *model.Book
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Lock so a concurrent approve/return cannot interleave with the stock shift
		book, err := s.bookRepo.FindForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}

		available := book.AvailableCopies + (req.TotalCopies - book.TotalCopies)
		if available < 0 {
			return ErrStockBelowLoans
		}

		book.Title = strings.TrimSpace(req.Title)
		book.Slug = slug
		book.Author = strings.TrimSpace(req.Author)
		book.Publisher = req.Publisher
		book.ISBN = isbn
		book.PublishedYear = req.PublishedYear
		book.CategoryID = req.CategoryID
		book.Description = req.Description
		book.CoverURL = req.CoverURL
		book.TotalCopies = req.TotalCopies
		book.AvailableCopies = available
		book.UpdatedBy = actorID

		if err := s.bookRepo.Save(tx, book); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrISBNExists
			}
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("book_updated", updated)
	return s.bookRepo.FindByID(id)
}

func (s *catalogService) DeleteBook(id uuid.UUID, actorID string) error {
	book, err := s.bookRepo.FindByID(id)
	if err != nil {
		return notFound(err, ErrBookNotFound)
	}

	open, err := s.borrowingRepo.CountOpenByBook(id)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrBookInUse
	}

	if err := s.bookRepo.Delete(id, actorID); err != nil {
		return notFound(err, ErrBookNotFound)
	}
	s.broadcast("book_deleted", book)
	return nil
}

func (s *catalogService) GetBook(id uuid.UUID) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(id)
	return book, notFound(err, ErrBookNotFound)
}

func (s *catalogService) GetBookBySlug(slug string) (*model.Book, error) {
	book, err := s.bookRepo.FindBySlug(slug)
	return book, notFound(err, ErrBookNotFound)
}

func (s *catalogService) ListBooks(filter repository.BookFilter) ([]model.Book, int64, error) {
	return s.bookRepo.FindAll(filter)
}

func (s *catalogService) ensureISBNFree(isbn string, exceptID uuid.UUID) error {
	existing, err := s.bookRepo.FindByISBN(isbn)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != exceptID:
		return ErrISBNExists
	}
	return nil
}

func (s *catalogService) ensureCategory(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.categoryRepo.FindByID(*id)
	return notFound(err, ErrCategoryNotFound)
}

// broadcast tells every connected client that the catalog changed.
func (s *catalogService) broadcast(action string, book *model.Book) {
	if s.pusher == nil {
		return
	}
	s.pusher.SendJSON(uuid.Nil, map[string]interface{}{
		"type":   "catalog_update",
		"action": action,
		"book": map[string]interface{}{
			"id":               book.ID,
			"slug":             book.Slug,
			"title":            book.Title,
			"available_copies": book.AvailableCopies,
			"total_copies":     book.TotalCopies,
		},
	})
}
