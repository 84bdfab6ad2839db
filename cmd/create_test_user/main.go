package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"calm_games/internal/db"
	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/repository"
	"calm_games/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("username", "testuser", "username to create or reuse")
	opening := flag.Int64("balance", 20, "opening balance for a new wallet")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	u, err := repo.GetByUsername(ctx, *username)
	switch {
	case err == nil:
		logger.Info("user already exists", "id", u.ID)
	case errors.Is(err, repository.ErrNotFound):
		u = &domain.User{Username: *username}
		if err := repo.Create(ctx, u, *opening); err != nil {
			logger.Fatal("create user failed", "error", err)
		}
		logger.Info("user created", "id", u.ID, "balance", *opening)
	default:
		logger.Fatal("lookup user failed", "error", err)
	}

	w, err := repository.NewWalletRepository(pool).GetByUserID(ctx, u.ID)
	if err != nil {
		logger.Fatal("get wallet failed", "error", err)
	}

	service.InitJWT(secret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	logger.Info("wallet", "user_id", u.ID, "balance", w.Balance)
	fmt.Println(token)
}
