package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Email          string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password       string      `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	FullName       string      `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	IdentityNumber string      `gorm:"type:varchar(50);index" json:"identity_number"` // NIS untuk siswa, NIP untuk guru/staf
	ClassName      string      `gorm:"type:varchar(50)" json:"class_name,omitempty"`
	PhoneNumber    string      `gorm:"type:varchar(20)" json:"phone_number"`
	RoleID         *uint       `gorm:"index" json:"role_id"`
	Role           *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive       bool        `gorm:"default:true" json:"is_active"`
	Privileges     []Privilege `gorm:"many2many:user_privileges;" json:"privileges,omitempty"`
	TokenVersion   string      `gorm:"type:varchar(255);default:''" json:"-"` // For single session enforcement
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// HasPrivilege checks if the user has a specific privilege
func (u *User) HasPrivilege(code string) bool {
	for _, p := range u.Privileges {
		if p.Code == code {
			return true
		}
	}
	return false
}

// GetPrivilegeCodes returns a slice of all privilege codes for this user
func (u *User) GetPrivilegeCodes() []string {
	codes := make([]string, len(u.Privileges))
	for i, p := range u.Privileges {
		codes[i] = p.Code
	}
	return codes
}

func (u *User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	FullName       string      `json:"full_name"`
	IdentityNumber string      `json:"identity_number"`
	ClassName      string      `json:"class_name,omitempty"`
	PhoneNumber    string      `json:"phone_number"`
	RoleID         *uint       `json:"role_id,omitempty"`
	Role           *Role       `json:"role,omitempty"`
	IsActive       bool        `json:"is_active"`
	Privileges     []Privilege `json:"privileges"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		IdentityNumber: u.IdentityNumber,
		ClassName:      u.ClassName,
		PhoneNumber:    u.PhoneNumber,
		RoleID:         u.RoleID,
		Role:           u.Role,
		IsActive:       u.IsActive,
		Privileges:     u.Privileges,
		CreatedAt:      u.CreatedAt,
	}
}
