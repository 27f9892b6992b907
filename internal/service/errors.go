package service

import (
	"errors"

	"go-school-library/internal/repository"
)

var (
	ErrBookNotFound         = errors.New("book not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrBorrowingNotFound    = errors.New("borrowing not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRoleNotFound         = errors.New("role not found")

	ErrOutOfStock       = repository.ErrOutOfStock
	ErrLoanLimitReached = errors.New("active loan limit reached")
	ErrDuplicateRequest = errors.New("an open borrowing for this book already exists")
	ErrISBNExists       = errors.New("ISBN already exists")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category still has books")
	ErrBookInUse        = errors.New("book has open borrowings")
	ErrStockBelowLoans  = errors.New("total copies cannot be less than copies on loan")
	ErrForbidden        = errors.New("not allowed to access this resource")
)

// notFound swaps the repository's not-found sentinel for the caller's domain error.
func notFound(err error, domainErr error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domainErr
	}
	return err
}
