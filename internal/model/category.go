package model

// Category groups books in the catalog (Fiksi, Sains, Sejarah, ...).
type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" validate:"required,max=100"`
	Slug        string `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}
