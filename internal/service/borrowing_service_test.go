package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-school-library/internal/lifecycle"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/pkg/validator"
)

const librarian = "librarian-1"

func submit(t *testing.T, e *testEnv, user *model.User, book *model.Book) *model.Borrowing {
	t.Helper()
	b, err := e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: book.ID}, user.ID)
	require.NoError(t, err)
	return b
}

func TestBorrowingService_TwoStudentsOneCopy(t *testing.T) {
	e := newEnv(t)
	budi := e.student(t, "Budi Santoso")
	siti := e.student(t, "Siti Aminah")
	book := e.book(t, "Bumi", 1)

	// Both may ask while the copy is on the shelf; nothing is reserved yet
	reqBudi := submit(t, e, budi, book)
	reqSiti := submit(t, e, siti, book)
	assert.Equal(t, model.StatusPending, reqBudi.Status)
	assert.Equal(t, 1, e.available(t, book.ID))

	approved, err := e.borrowings.Approve(reqBudi.ID, librarian)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDipinjam, approved.Status)
	assertDay(t, "2025-01-08", approved.DueDate)
	assert.Equal(t, librarian, approved.ApprovedBy)
	assert.Equal(t, 0, e.available(t, book.ID))

	_, err = e.borrowings.Approve(reqSiti.ID, librarian)
	assert.ErrorIs(t, err, service.ErrOutOfStock)
	assert.True(t, service.IsConflict(err))

	still, err := e.borrowings.Get(reqSiti.ID, siti.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, still.Status)
	e.assertStockConserved(t, book.ID)

	// A new request on an empty shelf is refused up front
	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: book.ID}, e.student(t, "Rina").ID)
	assert.ErrorIs(t, err, service.ErrOutOfStock)

	e.clock.Set("2025-01-05")
	_, err = e.borrowings.MarkReturned(reqBudi.ID, librarian)
	require.NoError(t, err)
	assert.Equal(t, 1, e.available(t, book.ID))

	_, err = e.borrowings.Approve(reqSiti.ID, librarian)
	require.NoError(t, err)
	assert.Equal(t, 0, e.available(t, book.ID))
	e.assertStockConserved(t, book.ID)
}

func TestBorrowingService_ConcurrentApprovals(t *testing.T) {
	e := newEnv(t)
	book := e.book(t, "Negeri 5 Menara", 2)

	var requests []*model.Borrowing
	for i := 0; i < 5; i++ {
		requests = append(requests, submit(t, e, e.student(t, "Siswa"), book))
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, denied int
	)
	for _, req := range requests {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := e.borrowings.Approve(id, librarian)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, service.ErrOutOfStock):
				denied++
			}
		}(req.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, ok)
	assert.Equal(t, 3, denied)
	assert.Equal(t, 0, e.available(t, book.ID))
	e.assertStockConserved(t, book.ID)
}

func TestBorrowingService_SubmitRules(t *testing.T) {
	e := newEnv(t, withMaxActive(2))
	user := e.student(t, "Andi")
	first := e.book(t, "Hujan", 3)
	second := e.book(t, "Pulang", 3)
	third := e.book(t, "Pergi", 3)

	submit(t, e, user, first)

	_, err := e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: first.ID}, user.ID)
	assert.ErrorIs(t, err, service.ErrDuplicateRequest)

	submit(t, e, user, second)
	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: third.ID}, user.ID)
	assert.ErrorIs(t, err, service.ErrLoanLimitReached)
	assert.True(t, service.IsConflict(err))

	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: uuid.New()}, e.student(t, "Dewi").ID)
	assert.ErrorIs(t, err, service.ErrBookNotFound)

	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: first.ID}, uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	var verr *validator.Error
	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{}, user.ID)
	assert.ErrorAs(t, err, &verr)

	inactive := e.student(t, "Lulus")
	inactive.IsActive = false
	require.NoError(t, e.userRepo.Update(inactive))
	_, err = e.borrowings.Submit(&service.SubmitBorrowRequest{BookID: third.ID}, inactive.ID)
	assert.ErrorIs(t, err, service.ErrUserInactive)

	// Submitting never touches the shelf
	assert.Equal(t, 3, e.available(t, first.ID))
}

func TestBorrowingService_RejectKeepsStock(t *testing.T) {
	e := newEnv(t)
	user := e.student(t, "Joko")
	book := e.book(t, "Ronggeng Dukuh Paruk", 1)
	req := submit(t, e, user, book)

	rejected, err := e.borrowings.Reject(req.ID, librarian, "Kartu perpustakaan belum aktif")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDitolak, rejected.Status)
	assert.Equal(t, "Kartu perpustakaan belum aktif", rejected.Notes)
	assert.Equal(t, 1, e.available(t, book.ID))

	_, err = e.borrowings.Approve(req.ID, librarian)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)

	_, err = e.borrowings.Reject(uuid.New(), librarian, "")
	assert.ErrorIs(t, err, service.ErrBorrowingNotFound)

	// requested + rejected
	assert.EqualValues(t, 2, e.unread(t, user.ID))
}

func TestBorrowingService_ExtendOnlyOnce(t *testing.T) {
	e := newEnv(t)
	user := e.student(t, "Wati")
	book := e.book(t, "Cantik Itu Luka", 1)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	_, err = e.borrowings.Extend(req.ID, librarian)
	require.NoError(t, err)
	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assertDay(t, "2025-01-15", got.DueDate)
	assert.True(t, got.Extended)

	_, err = e.borrowings.Extend(req.ID, librarian)
	assert.ErrorIs(t, err, lifecycle.ErrAlreadyExtended)
	assert.True(t, service.IsConflict(err))

	got, err = e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assertDay(t, "2025-01-15", got.DueDate)
}

func TestBorrowingService_DailySweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.student(t, "Putri")
	book := e.book(t, "Sang Pemimpi", 1)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	// Nothing is due yet
	report, err := e.borrowings.RunDailySweep(ctx, mustDay("2025-01-07"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)

	// Due day
	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-08"))
	require.NoError(t, err)
	assert.Equal(t, service.SweepReport{Date: "2025-01-08", Processed: 1, Escalated: 1, Notified: 1}, *report)

	// Same day again changes nothing
	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-08"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated+report.Fined+report.Notified)

	// Still inside the grace window
	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fined)

	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-16"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 1, report.Fined)

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTerlambat, got.Status)
	assert.EqualValues(t, 15000, got.FineAmount)
	assertDay(t, "2025-01-15", got.DueDate)

	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-16"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fined)

	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-23"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fined)
	assert.Equal(t, 0, report.Escalated)

	got, err = e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 17000, got.FineAmount)
	assertDay(t, "2025-01-22", got.DueDate)

	// requested, approved, due today, two fines
	assert.EqualValues(t, 5, e.unread(t, user.ID))
	assert.Equal(t, 0, e.available(t, book.ID))
	e.assertStockConserved(t, book.ID)
}

func TestBorrowingService_CatchUpSweepIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.student(t, "Wulan")
	book := e.book(t, "Perahu Kertas", 1)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	// Due 2025-01-08; the scheduler was down until February
	report, err := e.borrowings.RunDailySweep(ctx, mustDay("2025-02-01"))
	require.NoError(t, err)
	assert.Equal(t, service.SweepReport{Date: "2025-02-01", Processed: 1, Escalated: 1, Fined: 1, Notified: 2}, *report)

	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-02-01"))
	require.NoError(t, err)
	assert.Equal(t, service.SweepReport{Date: "2025-02-01", Processed: 1}, *report)

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTerlambat, got.Status)
	assert.EqualValues(t, 19000, got.FineAmount)
	assertDay(t, "2025-01-29", got.DueDate)

	items, _, err := e.notifications.List(user.ID, false, 20, 0)
	require.NoError(t, err)
	var categories []model.NotificationCategory
	for _, n := range items {
		categories = append(categories, n.Category)
	}
	assert.Contains(t, categories, model.NotifyDuePassed)
	assert.NotContains(t, categories, model.NotifyDueToday)
}

func TestBorrowingService_SweepAtFineCap(t *testing.T) {
	e := newEnv(t, withFineCap(16000))
	ctx := context.Background()
	user := e.student(t, "Yusuf")
	book := e.book(t, "Amba", 1)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	report, err := e.borrowings.RunDailySweep(ctx, mustDay("2025-01-16"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fined)

	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-23"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fined)

	before := e.unread(t, user.ID)
	report, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-30"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fined)
	assert.Equal(t, 0, report.Notified)
	assert.Equal(t, before, e.unread(t, user.ID))

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 16000, got.FineAmount)
	assertDay(t, "2025-01-29", got.DueDate)
}

func TestBorrowingService_ReturnFreezesFine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.student(t, "Fajar")
	book := e.book(t, "Gadis Kretek", 2)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	_, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-08"))
	require.NoError(t, err)
	_, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-16"))
	require.NoError(t, err)

	e.clock.Set("2025-01-20")
	returned, err := e.borrowings.MarkReturned(req.ID, librarian)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDikembalikan, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assertDay(t, "2025-01-20", *returned.ReturnDate)
	assert.EqualValues(t, 15000, returned.FineAmount)
	assert.Equal(t, librarian, returned.ReturnedBy)
	assert.Equal(t, 2, e.available(t, book.ID))

	report, err := e.borrowings.RunDailySweep(ctx, mustDay("2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 15000, got.FineAmount)

	_, err = e.borrowings.MarkReturned(req.ID, librarian)
	assert.ErrorIs(t, err, lifecycle.ErrAlreadyReturned)
	assert.Equal(t, 2, e.available(t, book.ID))
	e.assertStockConserved(t, book.ID)
}

func TestBorrowingService_SweepContinuesPastFailure(t *testing.T) {
	e := newEnv(t)
	user := e.student(t, "Rudi")
	book := e.book(t, "Ayat-Ayat Cinta", 2)
	old := e.book(t, "Siti Nurbaya", 1)

	// A row the sweep cannot fix: a negative fine breaks the record check
	borrowed := mustDay("2024-12-18")
	broken := &model.Borrowing{
		UserID:      user.ID,
		BookID:      old.ID,
		RequestDate: borrowed,
		BorrowDate:  &borrowed,
		DueDate:     mustDay("2025-01-01"),
		Status:      model.StatusTerlambat,
		FineAmount:  -5000,
	}
	require.NoError(t, e.db.Create(broken).Error)

	req := submit(t, e, user, book)
	e.clock.Set("2025-01-13")
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	report, err := e.borrowings.RunDailySweep(context.Background(), mustDay("2025-01-20"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Escalated)

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTenggat, got.Status)
}

func TestBorrowingService_SweepStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	user := e.student(t, "Tono")
	book := e.book(t, "Perahu Kertas", 1)
	req := submit(t, e, user, book)
	_, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.borrowings.RunDailySweep(ctx, mustDay("2025-01-08"))
	assert.ErrorIs(t, err, context.Canceled)

	got, err := e.borrowings.Get(req.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDipinjam, got.Status)
}

type failingNotifier struct {
	service.NotificationService
	mu    sync.Mutex
	calls int
}

func (f *failingNotifier) Notify(uuid.UUID, *uuid.UUID, model.NotificationCategory, string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return false
}

func TestBorrowingService_NotificationFailureKeepsTransition(t *testing.T) {
	notifier := &failingNotifier{}
	e := newEnv(t, withNotifier(notifier))
	user := e.student(t, "Lina")
	book := e.book(t, "Dilan 1990", 1)

	req := submit(t, e, user, book)
	approved, err := e.borrowings.Approve(req.ID, librarian)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDipinjam, approved.Status)
	assert.Equal(t, 0, e.available(t, book.ID))

	report, err := e.borrowings.RunDailySweep(context.Background(), mustDay("2025-01-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Equal(t, 0, report.Notified)
	assert.Equal(t, 3, notifier.calls)
}

func TestBorrowingService_GetAndList(t *testing.T) {
	e := newEnv(t)
	owner := e.student(t, "Maya")
	other := e.student(t, "Bayu")
	book := e.book(t, "Lelaki Harimau", 2)
	req := submit(t, e, owner, book)
	submit(t, e, other, book)

	got, err := e.borrowings.Get(req.ID, owner.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got.Book)
	assert.Equal(t, "Lelaki Harimau", got.Book.Title)

	_, err = e.borrowings.Get(req.ID, other.ID, false)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.borrowings.Get(req.ID, other.ID, true)
	assert.NoError(t, err)

	_, err = e.borrowings.Get(uuid.New(), owner.ID, true)
	assert.ErrorIs(t, err, service.ErrBorrowingNotFound)

	list, total, err := e.borrowings.List(repository.BorrowingFilter{UserID: &owner.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)
}
