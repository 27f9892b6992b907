package main

import (
	"flag"
	"log"

	"go-school-library/internal/config"
	"go-school-library/internal/repository"
	"go-school-library/pkg/database"
)

func main() {
	email := flag.String("email", "", "email of the account to reset (default ADMIN_EMAIL)")
	password := flag.String("password", "", "new password (default ADMIN_PASSWORD)")
	flag.Parse()

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *email == "" {
		*email = cfg.AdminEmail
	}
	if *password == "" {
		*password = cfg.AdminPassword
	}
	if len(*password) < 6 {
		log.Fatal("❌ Password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DSN(), "silent")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	userRepo := repository.NewUserRepo(db)

	// 3. Find user
	user, err := userRepo.FindByEmail(*email)
	if err != nil {
		log.Fatalf("❌ User %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	if err := user.SetPassword(*password); err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 5. Update
	if err := userRepo.UpdatePassword(user.ID, user.Password); err != nil {
		log.Fatalf("❌ Failed to update password in DB: %v", err)
	}

	log.Printf("✅ Success! Password for %s has been reset", *email)
}
