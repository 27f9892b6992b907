package service

import (
	"errors"
	"fmt"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"

	"go.uber.org/zap"
)

// SeedDefaults creates the default privileges, roles and the first administrator
// if they don't exist yet. Roles that already carry privileges are left alone.
func SeedDefaults(
	privilegeRepo repository.PrivilegeRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	adminEmail, adminPassword string,
	log *zap.Logger,
) error {
	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, err := privilegeRepo.FindAll()
	if err != nil {
		return fmt.Errorf("load privileges: %w", err)
	}
	for code, codes := range model.DefaultRolePrivileges {
		role, err := roleRepo.FindByCode(code)
		if err != nil {
			return fmt.Errorf("load role %s: %w", code, err)
		}
		if len(role.Privileges) > 0 {
			continue
		}

		granted := allPrivileges
		if codes != nil {
			if granted, err = privilegeRepo.FindByCodes(codes); err != nil {
				return fmt.Errorf("load privileges for %s: %w", code, err)
			}
		}
		if err := roleRepo.ReplacePrivileges(role, granted); err != nil {
			return fmt.Errorf("assign privileges to %s: %w", code, err)
		}
		log.Info("role privileges seeded", zap.String("role", code), zap.Int("privileges", len(granted)))
	}

	// 4. Create default admin user with ADMIN role
	if _, err := userRepo.FindByEmail(adminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}

	adminRole, err := roleRepo.FindByCode(model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}
	admin := &model.User{
		Email:      adminEmail,
		FullName:   "Administrator Perpustakaan",
		RoleID:     &adminRole.ID,
		IsActive:   true,
		Privileges: adminRole.Privileges,
	}
	admin.Audit("system")
	if err := admin.SetPassword(adminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := userRepo.Create(admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	log.Info("admin user created", zap.String("email", admin.Email))
	return nil
}
