package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-school-library/internal/lifecycle"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/pkg/clock"
	"go-school-library/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

type BorrowingService interface {
	Submit(req *SubmitBorrowRequest, userID uuid.UUID) (*model.Borrowing, error)
	Approve(id uuid.UUID, actorID string) (*model.Borrowing, error)
	Reject(id uuid.UUID, actorID, reason string) (*model.Borrowing, error)
	Extend(id uuid.UUID, actorID string) (*model.Borrowing, error)
	MarkReturned(id uuid.UUID, actorID string) (*model.Borrowing, error)
	RunDailySweep(ctx context.Context, today time.Time) (*SweepReport, error)
	Get(id, viewerID uuid.UUID, canViewAll bool) (*model.Borrowing, error)
	List(filter repository.BorrowingFilter) ([]model.Borrowing, int64, error)
}

type SubmitBorrowRequest struct {
	BookID uuid.UUID `json:"book_id" validate:"uuid_required"`
	Notes  string    `json:"notes" validate:"max=500"`
}

// SweepReport summarises one escalation run.
type SweepReport struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"` // loans examined
	Escalated int    `json:"escalated"` // loans whose status changed
	Fined     int    `json:"fined"`     // loans charged a new fine
	Notified  int    `json:"notified"`  // notifications written
	Failed    int    `json:"failed"`    // loans skipped because of an error
}

type borrowingService struct {
	borrowingRepo repository.BorrowingRepository
	bookRepo      repository.BookRepository
	userRepo      repository.UserRepository
	notifier      NotificationService
	db            *gorm.DB
	policy        lifecycle.Policy
	maxActive     int
	clock         clock.Clock
	log           *zap.Logger
}

// BorrowingConfig carries the rules the borrowing desk enforces.
type BorrowingConfig struct {
	Policy         lifecycle.Policy
	MaxActiveLoans int // 0 disables the limit
}

func NewBorrowingService(
	borrowingRepo repository.BorrowingRepository,
	bookRepo repository.BookRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	db *gorm.DB,
	cfg BorrowingConfig,
	clk clock.Clock,
	log *zap.Logger,
) BorrowingService {
	return &borrowingService{
		borrowingRepo: borrowingRepo,
		bookRepo:      bookRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		db:            db,
		policy:        cfg.Policy,
		maxActive:     cfg.MaxActiveLoans,
		clock:         clk,
		log:           log,
	}
}

type transitionFunc func(b model.Borrowing, today time.Time) (model.Borrowing, lifecycle.Outcome, error)

func (s *borrowingService) Submit(req *SubmitBorrowRequest, userID uuid.UUID) (*model.Borrowing, error) {
	// 1. Validate request
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	// 2. Borrower must exist and be active
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	b, out, err := s.policy.Submit(userID, req.BookID, s.clock.Today())
	if err != nil {
		return nil, err
	}
	b.Notes = req.Notes
	b.Audit(userID.String())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 3. Book must have a copy on the shelf; nothing is reserved yet
		book, err := s.bookRepo.FindForUpdate(tx, req.BookID)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}
		if !book.IsAvailable() {
			return ErrOutOfStock
		}

		// 4. Loan limit and duplicate request
		if s.maxActive > 0 {
			open, err := s.borrowingRepo.CountOpenByUser(tx, userID)
			if err != nil {
				return err
			}
			if open >= int64(s.maxActive) {
				return ErrLoanLimitReached
			}
		}
		dup, err := s.borrowingRepo.HasOpenForBook(tx, userID, req.BookID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateRequest
		}

		// 5. Simpan
		return s.borrowingRepo.Create(tx, &b)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(b, out)
	return s.reload(b), nil
}

func (s *borrowingService) Approve(id uuid.UUID, actorID string) (*model.Borrowing, error) {
	return s.transition(id, actorID, func(b model.Borrowing, today time.Time) (model.Borrowing, lifecycle.Outcome, error) {
		next, out, err := s.policy.Approve(b, today)
		next.ApprovedBy = actorID
		return next, out, err
	})
}

func (s *borrowingService) Reject(id uuid.UUID, actorID, reason string) (*model.Borrowing, error) {
	return s.transition(id, actorID, func(b model.Borrowing, today time.Time) (model.Borrowing, lifecycle.Outcome, error) {
		next, out, err := s.policy.Reject(b, today)
		if reason != "" {
			next.Notes = reason
		}
		return next, out, err
	})
}

func (s *borrowingService) Extend(id uuid.UUID, actorID string) (*model.Borrowing, error) {
	return s.transition(id, actorID, s.policy.Extend)
}

func (s *borrowingService) MarkReturned(id uuid.UUID, actorID string) (*model.Borrowing, error) {
	return s.transition(id, actorID, func(b model.Borrowing, today time.Time) (model.Borrowing, lifecycle.Outcome, error) {
		next, out, err := s.policy.Return(b, today)
		next.ReturnedBy = actorID
		return next, out, err
	})
}

// transition runs one state change on a locked borrowing row, applies the stock
// movement in the same transaction and sends notifications after commit.
func (s *borrowingService) transition(id uuid.UUID, actorID string, step transitionFunc) (*model.Borrowing, error) {
	today := s.clock.Today()
	var (
		result model.Borrowing
		out    lifecycle.Outcome
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock borrowing
		current, err := s.borrowingRepo.FindForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBorrowingNotFound)
		}

		// 2. Apply rule
		next, o, err := step(*current, today)
		if err != nil {
			return err
		}
		if err := lifecycle.Check(next); err != nil {
			return err
		}

		// 3. Stock movement
		if err := s.moveStock(tx, next, o.StockDelta); err != nil {
			return err
		}

		// 4. Persist
		next.UpdatedBy = actorID
		if err := s.borrowingRepo.Save(tx, &next); err != nil {
			return err
		}
		result, out = next, o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("borrowing transition",
		zap.String("borrowing_id", result.ID.String()),
		zap.String("from", string(out.From)),
		zap.String("to", string(out.To)),
		zap.String("actor", actorID),
	)
	s.dispatch(result, out)
	return s.reload(result), nil
}

func (s *borrowingService) moveStock(tx *gorm.DB, b model.Borrowing, delta int) error {
	switch {
	case delta < 0:
		if err := s.bookRepo.Reserve(tx, b.BookID); err != nil {
			return notFound(err, ErrBookNotFound)
		}
	case delta > 0:
		clamped, err := s.bookRepo.Release(tx, b.BookID)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}
		if clamped {
			s.log.Warn("release clamped at total copies",
				zap.String("book_id", b.BookID.String()),
				zap.String("borrowing_id", b.ID.String()),
			)
		}
	}
	return nil
}

// RunDailySweep escalates every due or overdue loan for today. Each loan is handled
// in its own transaction; a failure is logged and the sweep moves on.
func (s *borrowingService) RunDailySweep(ctx context.Context, today time.Time) (*SweepReport, error) {
	day := clock.Date(today)
	report := &SweepReport{Date: day.Format(clock.DateLayout)}

	ids, err := s.borrowingRepo.FindSweepable(ctx, day)
	if err != nil {
		return report, fmt.Errorf("load sweepable borrowings: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Processed++
		b, out, err := s.sweepOne(id, day)
		if err != nil {
			report.Failed++
			s.log.Error("sweep failed for borrowing", zap.String("borrowing_id", id.String()), zap.Error(err))
			continue
		}
		if !out.Changed() {
			continue
		}
		if out.StatusChanged() {
			report.Escalated++
		}
		if out.FineCharged > 0 {
			report.Fined++
		}
		report.Notified += s.dispatch(b, out)
	}

	s.log.Info("daily sweep finished",
		zap.String("date", report.Date),
		zap.Int("processed", report.Processed),
		zap.Int("escalated", report.Escalated),
		zap.Int("fined", report.Fined),
		zap.Int("notified", report.Notified),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *borrowingService) sweepOne(id uuid.UUID, today time.Time) (model.Borrowing, lifecycle.Outcome, error) {
	var (
		result model.Borrowing
		out    lifecycle.Outcome
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.borrowingRepo.FindForUpdate(tx, id)
		if err != nil {
			return err
		}
		next, o := s.policy.Sweep(*current, today)
		result, out = next, o
		if !o.Changed() {
			return nil
		}
		if err := lifecycle.Check(next); err != nil {
			return err
		}
		next.UpdatedBy = "system"
		return s.borrowingRepo.Save(tx, &next)
	})
	return result, out, err
}

func (s *borrowingService) Get(id, viewerID uuid.UUID, canViewAll bool) (*model.Borrowing, error) {
	b, err := s.borrowingRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrBorrowingNotFound)
	}
	if !canViewAll && b.UserID != viewerID {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *borrowingService) List(filter repository.BorrowingFilter) ([]model.Borrowing, int64, error) {
	return s.borrowingRepo.FindAll(filter)
}

// reload fetches the saved row with its book and borrower for the response.
func (s *borrowingService) reload(b model.Borrowing) *model.Borrowing {
	fresh, err := s.borrowingRepo.FindByID(b.ID)
	if err != nil {
		return &b
	}
	return fresh
}

// dispatch writes the notifications an outcome asks for and returns how many were stored.
func (s *borrowingService) dispatch(b model.Borrowing, out lifecycle.Outcome) int {
	if len(out.Notices) == 0 {
		return 0
	}
	title := "buku"
	if book, err := s.bookRepo.FindByID(b.BookID); err == nil {
		title = book.Title
	}

	sent := 0
	for _, category := range out.Notices {
		if s.notifier.Notify(b.UserID, &b.ID, category, noticeMessage(category, title, b)) {
			sent++
		}
	}
	return sent
}

var rupiah = message.NewPrinter(language.Indonesian)

func formatRupiah(amount int64) string {
	return rupiah.Sprintf("Rp %d", amount)
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

func noticeMessage(category model.NotificationCategory, title string, b model.Borrowing) string {
	switch category {
	case model.NotifyBorrowRequested:
		return fmt.Sprintf("Permintaan peminjaman buku '%s' diterima dan menunggu persetujuan pustakawan.", title)
	case model.NotifyBorrowApproved:
		return fmt.Sprintf("Peminjaman buku '%s' disetujui. Batas pengembalian: %s.", title, formatDate(b.DueDate))
	case model.NotifyBorrowRejected:
		msg := fmt.Sprintf("Permintaan peminjaman buku '%s' ditolak.", title)
		if b.Notes != "" {
			msg += " Alasan: " + b.Notes
		}
		return msg
	case model.NotifyDueToday:
		return fmt.Sprintf("PENGINGAT: Hari ini batas pengembalian buku '%s'. Segera kembalikan ke perpustakaan.", title)
	case model.NotifyDuePassed:
		return fmt.Sprintf("PERINGATAN: Batas pengembalian buku '%s' sudah lewat. Segera kembalikan ke perpustakaan.", title)
	case model.NotifyOverdueFine:
		return fmt.Sprintf("PERINGATAN: Buku '%s' terlambat dikembalikan. Denda saat ini %s.", title, formatRupiah(b.FineAmount))
	case model.NotifyLoanExtended:
		return fmt.Sprintf("Peminjaman buku '%s' diperpanjang hingga %s.", title, formatDate(b.DueDate))
	case model.NotifyLoanReturned:
		msg := fmt.Sprintf("Buku '%s' telah dikembalikan. Terima kasih!", title)
		if b.FineAmount > 0 {
			msg += fmt.Sprintf(" Denda yang harus dibayar: %s.", formatRupiah(b.FineAmount))
		}
		return msg
	}
	return fmt.Sprintf("Status peminjaman buku '%s': %s.", title, b.Status)
}

// IsConflict reports whether err is a workflow rule violation rather than a fault.
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrOutOfStock, ErrLoanLimitReached, ErrDuplicateRequest,
		lifecycle.ErrInvalidState, lifecycle.ErrAlreadyExtended, lifecycle.ErrAlreadyReturned,
		ErrISBNExists, ErrCategoryExists, ErrCategoryInUse, ErrBookInUse, ErrStockBelowLoans,
		ErrEmailExists, repository.ErrDuplicate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
