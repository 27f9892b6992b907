// Package lifecycle implements the borrowing state machine.
//
// Every transition is a pure function of the current record, the calendar date and
// the action. It returns the next record and an Outcome listing the side effects
// (stock movement, notifications, fines) that the caller must apply. Nothing in this
// package touches storage or the wall clock.
//
//	Pending --approve--> Dipinjam --due day--> Tenggat --grace passed--> Terlambat
//	   |                    \____________________|_____________________/
//	 reject                          return (from any of the three)
//	   v                                        v
//	Ditolak                               Dikembalikan
package lifecycle

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"go-school-library/internal/model"
	"go-school-library/pkg/clock"
)

var (
	ErrInvalidState     = errors.New("borrowing status does not allow this action")
	ErrAlreadyExtended  = errors.New("borrowing has already been extended once")
	ErrAlreadyReturned  = errors.New("borrowing has already been returned")
	ErrDueBeforeBorrow  = errors.New("due date is before borrow date")
	ErrMissingReference = errors.New("borrowing requires a user and a book")
)

// Policy holds the borrowing rules. Day counts are calendar days, money is in the
// smallest currency unit.
type Policy struct {
	LoanDays      int   // loan length from borrow date
	ExtensionDays int   // added to the due date by an extension
	GraceDays     int   // days past due before a fine is charged; also the escalation window
	FirstFine     int64 // charged on the first escalation
	FineIncrement int64 // added on every later escalation
	FineCap       int64 // 0 means unbounded
}

// DefaultPolicy returns the school's standing rules: 7 day loans, one 7 day extension,
// Rp 15.000 on the first escalation and Rp 2.000 per later 7 day window.
func DefaultPolicy() Policy {
	return Policy{
		LoanDays:      7,
		ExtensionDays: 7,
		GraceDays:     7,
		FirstFine:     15000,
		FineIncrement: 2000,
	}
}

// Outcome describes what a transition did and what the caller must apply.
type Outcome struct {
	From        model.BorrowingStatus
	To          model.BorrowingStatus
	StockDelta  int // -1 reserve a copy, +1 release a copy
	Notices     []model.NotificationCategory
	FineCharged int64
	DueAdvanced bool
}

// StatusChanged reports whether the transition moved the borrowing to another state.
func (o Outcome) StatusChanged() bool {
	return o.From != o.To
}

// Changed reports whether the record must be persisted.
func (o Outcome) Changed() bool {
	return o.StatusChanged() || o.FineCharged > 0 || o.DueAdvanced
}

// Submit creates a Pending borrowing. The due date is provisional and is recomputed
// on approval; no stock is taken yet.
func (p Policy) Submit(userID, bookID uuid.UUID, requestDate time.Time) (model.Borrowing, Outcome, error) {
	if userID == uuid.Nil || bookID == uuid.Nil {
		return model.Borrowing{}, Outcome{}, ErrMissingReference
	}
	day := clock.Date(requestDate)
	b := model.Borrowing{
		UserID:      userID,
		BookID:      bookID,
		RequestDate: day,
		DueDate:     clock.AddDays(day, p.LoanDays),
		Status:      model.StatusPending,
	}
	return b, Outcome{
		To:      model.StatusPending,
		Notices: []model.NotificationCategory{model.NotifyBorrowRequested},
	}, nil
}

// Approve moves a Pending borrowing to Dipinjam and takes one copy off the shelf.
func (p Policy) Approve(b model.Borrowing, today time.Time) (model.Borrowing, Outcome, error) {
	out := Outcome{From: b.Status, To: b.Status}
	if b.Status != model.StatusPending {
		return b, out, ErrInvalidState
	}

	if b.BorrowDate == nil {
		d := clock.Date(today)
		b.BorrowDate = &d
	}
	b.DueDate = clock.AddDays(*b.BorrowDate, p.LoanDays)
	b.Status = model.StatusDipinjam

	out.To = b.Status
	out.StockDelta = -1
	out.Notices = []model.NotificationCategory{model.NotifyBorrowApproved}
	return b, out, nil
}

// Reject closes a Pending request without touching stock.
func (p Policy) Reject(b model.Borrowing, _ time.Time) (model.Borrowing, Outcome, error) {
	out := Outcome{From: b.Status, To: b.Status}
	if b.Status != model.StatusPending {
		return b, out, ErrInvalidState
	}

	b.Status = model.StatusDitolak
	out.To = b.Status
	out.Notices = []model.NotificationCategory{model.NotifyBorrowRejected}
	return b, out, nil
}

// Extend pushes the due date once per loan. Status does not change.
func (p Policy) Extend(b model.Borrowing, _ time.Time) (model.Borrowing, Outcome, error) {
	out := Outcome{From: b.Status, To: b.Status}
	if b.Status != model.StatusDipinjam && b.Status != model.StatusTenggat {
		return b, out, ErrInvalidState
	}
	if p.WasExtended(b) {
		return b, out, ErrAlreadyExtended
	}

	b.DueDate = clock.AddDays(b.DueDate, p.ExtensionDays)
	b.Extended = true

	out.DueAdvanced = true
	out.Notices = []model.NotificationCategory{model.NotifyLoanExtended}
	return b, out, nil
}

// WasExtended reports whether the loan already used its extension. Besides the
// explicit flag, a due date beyond the originally scheduled one (origin + LoanDays)
// counts as extended. Without a borrow date the origin is DueDate - LoanDays.
func (p Policy) WasExtended(b model.Borrowing) bool {
	if b.Extended {
		return true
	}
	return clock.Date(b.DueDate).After(p.ScheduledDue(b))
}

// ScheduledDue is the due date the loan had before any extension or escalation.
func (p Policy) ScheduledDue(b model.Borrowing) time.Time {
	origin := clock.AddDays(b.DueDate, -p.LoanDays)
	if b.BorrowDate != nil {
		origin = clock.Date(*b.BorrowDate)
	}
	return clock.AddDays(origin, p.LoanDays)
}

// Return closes a loan, puts the copy back and freezes the fine.
func (p Policy) Return(b model.Borrowing, today time.Time) (model.Borrowing, Outcome, error) {
	out := Outcome{From: b.Status, To: b.Status}
	switch {
	case b.Status == model.StatusDikembalikan:
		return b, out, ErrAlreadyReturned
	case !b.Status.HoldsCopy():
		return b, out, ErrInvalidState
	}

	d := clock.Date(today)
	b.ReturnDate = &d
	b.Status = model.StatusDikembalikan

	out.To = b.Status
	out.StockDelta = 1
	out.Notices = []model.NotificationCategory{model.NotifyLoanReturned}
	return b, out, nil
}

// Sweep applies the daily escalation rules to one borrowing:
//
//   - Dipinjam whose due date is today becomes Tenggat with a due-today notice. When
//     the due date already passed (a missed sweep day) the notice says so instead.
//   - Tenggat or Terlambat with today > due + GraceDays is fined once per elapsed
//     window (FirstFine when nothing is owed yet, FineIncrement otherwise), becomes
//     Terlambat and the due date moves forward by GraceDays per window.
//
// All elapsed windows are charged in one call, so afterwards today <= due + GraceDays
// and running the sweep again on the same day changes nothing.
func (p Policy) Sweep(b model.Borrowing, today time.Time) (model.Borrowing, Outcome) {
	out := Outcome{From: b.Status, To: b.Status}
	if b.Status.IsTerminal() {
		return b, out
	}
	day := clock.Date(today)
	due := clock.Date(b.DueDate)

	if b.Status == model.StatusDipinjam && !day.Before(due) {
		b.Status = model.StatusTenggat
		if day.Equal(due) {
			out.Notices = append(out.Notices, model.NotifyDueToday)
		} else {
			out.Notices = append(out.Notices, model.NotifyDuePassed)
		}
	}

	if b.Status != model.StatusTenggat && b.Status != model.StatusTerlambat {
		out.To = b.Status
		return b, out
	}

	window := max(p.GraceDays, 1)
	before := b.FineAmount
	for day.After(clock.AddDays(due, window)) {
		b.FineAmount = p.nextFine(b.FineAmount)
		due = clock.AddDays(due, window)
		b.Status = model.StatusTerlambat
		out.DueAdvanced = true
	}
	if out.DueAdvanced {
		b.DueDate = due
		out.FineCharged = b.FineAmount - before
		// At the cap nothing new is owed; only a fresh escalation is announced.
		if out.FineCharged > 0 || out.From != model.StatusTerlambat {
			out.Notices = append(out.Notices, model.NotifyOverdueFine)
		}
	}

	out.To = b.Status
	return b, out
}

func (p Policy) nextFine(current int64) int64 {
	next := current + p.FineIncrement
	if current == 0 {
		next = p.FirstFine
	}
	if p.FineCap > 0 && next > p.FineCap {
		next = max(p.FineCap, current)
	}
	return next
}

// Check validates the record invariants that must hold after every transition.
func Check(b model.Borrowing) error {
	if b.BorrowDate != nil && clock.Date(b.DueDate).Before(clock.Date(*b.BorrowDate)) {
		return ErrDueBeforeBorrow
	}
	if b.Status == model.StatusDikembalikan && b.ReturnDate == nil {
		return ErrInvalidState
	}
	if b.FineAmount < 0 {
		return ErrInvalidState
	}
	return nil
}
