package service

import (
	"errors"
	"strings"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/pkg/validator"

	"github.com/google/uuid"
)

type CategoryService interface {
	Create(req *CategoryRequest, actorID string) (*model.Category, error)
	Update(id uuid.UUID, req *CategoryRequest, actorID string) (*model.Category, error)
	Delete(id uuid.UUID) error
	Get(id uuid.UUID) (*model.Category, error)
	List() ([]model.Category, error)
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	bookRepo     repository.BookRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository, bookRepo repository.BookRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo, bookRepo: bookRepo}
}

func (s *categoryService) Create(req *CategoryRequest, actorID string) (*model.Category, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(name, uuid.Nil); err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(name, "kategori", uuid.Nil, s.categoryRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Slug: slug, Description: req.Description}
	category.Audit(actorID)
	if err := s.categoryRepo.Create(category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Update(id uuid.UUID, req *CategoryRequest, actorID string) (*model.Category, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(name, id); err != nil {
		return nil, err
	}
	if name != category.Name {
		if category.Slug, err = uniqueSlug(name, "kategori", id, s.categoryRepo.SlugExists); err != nil {
			return nil, err
		}
	}

	category.Name = name
	category.Description = req.Description
	category.UpdatedBy = actorID
	if err := s.categoryRepo.Update(category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

// Delete refuses while any book still points at the category.
func (s *categoryService) Delete(id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	count, err := s.bookRepo.CountByCategory(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	return notFound(s.categoryRepo.Delete(id), ErrCategoryNotFound)
}

func (s *categoryService) Get(id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	return category, notFound(err, ErrCategoryNotFound)
}

func (s *categoryService) List() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *categoryService) ensureNameFree(name string, exceptID uuid.UUID) error {
	existing, err := s.categoryRepo.FindByName(name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != exceptID:
		return ErrCategoryExists
	}
	return nil
}
