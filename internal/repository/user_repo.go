package repository

import (
	"strings"

	"go-school-library/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByEmail(email string) (*model.User, error)
	FindByID(id uuid.UUID) (*model.User, error)
	Create(user *model.User) error
	Update(user *model.User) error
	Delete(id uuid.UUID) error
	UpdatePassword(userID uuid.UUID, hashedPassword string) error
	FindAll(search string) ([]model.User, error)
	FindIDsByRole(roleCodes ...string) ([]uuid.UUID, error)
	UpdateTokenVersion(userID uuid.UUID, version string) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Role").Preload("Privileges").Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

func (r *userRepo) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Role").Preload("Privileges").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

func (r *userRepo) Create(user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	return translate(r.db.Omit("Role").Create(user).Error, "create user")
}

func (r *userRepo) Update(user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return translate(err, "update user")
		}
		return tx.Model(user).Association("Privileges").Replace(user.Privileges)
	})
}

func (r *userRepo) UpdatePassword(userID uuid.UUID, hashedPassword string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Update("password", hashedPassword).Error
}

func (r *userRepo) Delete(id uuid.UUID) error {
	res := r.db.Delete(&model.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) FindAll(search string) ([]model.User, error) {
	query := r.db.Preload("Role").Preload("Privileges")
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR email LIKE ? OR identity_number LIKE ?", like, like, like)
	}

	var users []model.User
	if err := query.Order("full_name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindIDsByRole returns active users holding any of the given roles. No codes means
// every active user.
func (r *userRepo) FindIDsByRole(roleCodes ...string) ([]uuid.UUID, error) {
	query := r.db.Model(&model.User{}).Where("users.is_active = ?", true)
	if len(roleCodes) > 0 {
		query = query.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.code IN ?", roleCodes)
	}

	var ids []uuid.UUID
	err := query.Pluck("users.id", &ids).Error
	return ids, err
}

func (r *userRepo) UpdateTokenVersion(userID uuid.UUID, version string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Update("token_version", version).Error
}
