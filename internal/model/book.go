package model

import "github.com/google/uuid"

// Book is a catalog title. AvailableCopies is the stock contended by borrowings:
// 0 <= AvailableCopies <= TotalCopies.
type Book struct {
	BaseModel
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Slug            string     `gorm:"type:varchar(280);uniqueIndex;not null" json:"slug"`
	Author          string     `gorm:"type:varchar(255);not null" json:"author"`
	Publisher       string     `gorm:"type:varchar(255)" json:"publisher,omitempty"`
	ISBN            string     `gorm:"column:isbn;type:varchar(20);uniqueIndex;not null" json:"isbn"`
	PublishedYear   int        `json:"published_year,omitempty"`
	CategoryID      *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category        *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	CoverURL        string     `gorm:"type:varchar(500)" json:"cover_url,omitempty"`
	TotalCopies     int        `gorm:"not null;default:0" json:"total_copies"`
	AvailableCopies int        `gorm:"not null;default:0" json:"available_copies"`
}

// IsAvailable reports whether at least one copy is on the shelf.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// OnLoan is the number of copies currently held by borrowers.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
