package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationCategory classifies a notification for the client UI.
type NotificationCategory string

const (
	NotifyBorrowRequested NotificationCategory = "borrow_requested"
	NotifyBorrowApproved  NotificationCategory = "borrow_approved"
	NotifyBorrowRejected  NotificationCategory = "borrow_rejected"
	NotifyDueToday        NotificationCategory = "due_today"
	NotifyDuePassed       NotificationCategory = "due_passed"
	NotifyOverdueFine     NotificationCategory = "overdue_fine"
	NotifyLoanExtended    NotificationCategory = "loan_extended"
	NotifyLoanReturned    NotificationCategory = "loan_returned"
	NotifyAnnouncement    NotificationCategory = "announcement"
)

// Notification is an append-only message to one user. Only the read flag changes.
type Notification struct {
	ID          uuid.UUID            `gorm:"type:uuid;primary_key;" json:"id"`
	UserID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	BorrowingID *uuid.UUID           `gorm:"type:uuid;index" json:"borrowing_id,omitempty"`
	Category    NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Message     string               `gorm:"type:text;not null" json:"message"`
	IsRead      bool                 `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt      *time.Time           `json:"read_at,omitempty"`
	CreatedAt   time.Time            `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
