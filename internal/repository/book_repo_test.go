package repository_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/testutil"
)

func seedBook(t *testing.T, db *gorm.DB, title, isbn string, total, available int) *model.Book {
	t.Helper()
	book := &model.Book{
		Title:           title,
		Slug:            "slug-" + isbn,
		Author:          "Andrea Hirata",
		ISBN:            isbn,
		TotalCopies:     total,
		AvailableCopies: available,
	}
	require.NoError(t, repository.NewBookRepo(db).Create(book))
	return book
}

func available(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	book, err := repository.NewBookRepo(db).FindByID(id)
	require.NoError(t, err)
	return book.AvailableCopies
}

func TestBookRepo_ReserveAndRelease(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBookRepo(db)
	book := seedBook(t, db, "Laskar Pelangi", "9789793062792", 2, 1)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error { return repo.Reserve(tx, book.ID) }))
	assert.Equal(t, 0, available(t, db, book.ID))

	err := db.Transaction(func(tx *gorm.DB) error { return repo.Reserve(tx, book.ID) })
	assert.ErrorIs(t, err, repository.ErrOutOfStock)
	assert.Equal(t, 0, available(t, db, book.ID))

	var clamped bool
	require.NoError(t, db.Transaction(func(tx *gorm.DB) (err error) {
		clamped, err = repo.Release(tx, book.ID)
		return err
	}))
	assert.False(t, clamped)
	assert.Equal(t, 1, available(t, db, book.ID))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) (err error) {
		clamped, err = repo.Release(tx, book.ID)
		return err
	}))
	assert.False(t, clamped)
	assert.Equal(t, 2, available(t, db, book.ID))

	// Already at total_copies: the release is dropped.
	require.NoError(t, db.Transaction(func(tx *gorm.DB) (err error) {
		clamped, err = repo.Release(tx, book.ID)
		return err
	}))
	assert.True(t, clamped)
	assert.Equal(t, 2, available(t, db, book.ID))
}

func TestBookRepo_ReserveUnknownBook(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBookRepo(db)

	err := db.Transaction(func(tx *gorm.DB) error { return repo.Reserve(tx, uuid.New()) })
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.Release(tx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookRepo_ConcurrentReserveNeverOversells(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBookRepo(db)
	book := seedBook(t, db, "Bumi Manusia", "9789799731234", 3, 3)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		outOfStock int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error { return repo.Reserve(tx, book.ID) })
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, repository.ErrOutOfStock):
				outOfStock++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, outOfStock)
	assert.Equal(t, 0, available(t, db, book.ID))
}

func TestBookRepo_FindAllFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBookRepo(db)

	cat := &model.Category{Name: "Fiksi", Slug: "fiksi"}
	require.NoError(t, repository.NewCategoryRepo(db).Create(cat))

	a := seedBook(t, db, "Laskar Pelangi", "111", 1, 1)
	a.CategoryID = &cat.ID
	require.NoError(t, repo.Update(a))
	seedBook(t, db, "Sang Pemimpi", "222", 1, 0)
	seedBook(t, db, "Fisika Dasar", "333", 2, 2)

	books, total, err := repo.FindAll(repository.BookFilter{Search: "pelangi"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, "Laskar Pelangi", books[0].Title)
	require.NotNil(t, books[0].Category)
	assert.Equal(t, "Fiksi", books[0].Category.Name)

	_, total, err = repo.FindAll(repository.BookFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	books, total, err = repo.FindAll(repository.BookFilter{CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, books[0].ID)

	books, total, err = repo.FindAll(repository.BookFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, books, 2)
	assert.Equal(t, "Fisika Dasar", books[0].Title)
}

func TestBookRepo_SlugExistsSeesDeletedRows(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewBookRepo(db)
	book := seedBook(t, db, "Negeri 5 Menara", "444", 1, 1)

	exists, err := repo.SlugExists(book.Slug, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(book.Slug, book.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Delete(book.ID, "tester"))
	_, err = repo.FindByID(book.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	exists, err = repo.SlugExists(book.Slug, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, repo.Delete(book.ID, "tester"), repository.ErrNotFound)
}
