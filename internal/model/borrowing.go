package model

import (
	"time"

	"github.com/google/uuid"
)

// BorrowingStatus is the lifecycle state of a loan.
type BorrowingStatus string

const (
	StatusPending      BorrowingStatus = "Pending"
	StatusDipinjam     BorrowingStatus = "Dipinjam"     // on loan
	StatusTenggat      BorrowingStatus = "Tenggat"      // due today, grace window
	StatusTerlambat    BorrowingStatus = "Terlambat"    // overdue, fined
	StatusDikembalikan BorrowingStatus = "Dikembalikan" // returned
	StatusDitolak      BorrowingStatus = "Ditolak"      // request rejected
)

// HoldsCopy reports whether a borrowing in this state keeps one copy off the shelf.
func (s BorrowingStatus) HoldsCopy() bool {
	return s == StatusDipinjam || s == StatusTenggat || s == StatusTerlambat
}

// IsOpen reports whether the borrowing still counts against the borrower's loan limit.
func (s BorrowingStatus) IsOpen() bool {
	return s == StatusPending || s.HoldsCopy()
}

func (s BorrowingStatus) IsTerminal() bool {
	return s == StatusDikembalikan || s == StatusDitolak
}

func (s BorrowingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDipinjam, StatusTenggat, StatusTerlambat, StatusDikembalikan, StatusDitolak:
		return true
	}
	return false
}

// OpenStatuses lists the states counted by the loan limit.
var OpenStatuses = []BorrowingStatus{StatusPending, StatusDipinjam, StatusTenggat, StatusTerlambat}

// ActiveStatuses lists the states visited by the daily sweep.
var ActiveStatuses = []BorrowingStatus{StatusDipinjam, StatusTenggat, StatusTerlambat}

// Borrowing is one loan of one copy of a book to one user. Rows are never deleted.
type Borrowing struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"book_id"`
	Book        *Book           `gorm:"foreignKey:BookID" json:"book,omitempty"`
	RequestDate time.Time       `gorm:"type:date;not null" json:"request_date"`
	BorrowDate  *time.Time      `gorm:"type:date" json:"borrow_date"`
	DueDate     time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	ReturnDate  *time.Time      `gorm:"type:date" json:"return_date"`
	Status      BorrowingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	FineAmount  int64           `gorm:"not null;default:0" json:"fine_amount"`
	Extended    bool            `gorm:"not null;default:false" json:"extended"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	ApprovedBy  string          `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	ReturnedBy  string          `gorm:"type:varchar(255)" json:"returned_by,omitempty"`
}
