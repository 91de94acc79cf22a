package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/utils"
)

// SeedOptions carries the default admin credentials.
type SeedOptions struct {
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

// SeedResult reports what Seed inserted.
type SeedResult struct {
	AdminCreated bool
	Models       int
}

// Seed creates the admin credential row and the default catalog on a fresh
// database. Existing rows are left untouched.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) (SeedResult, error) {
	var res SeedResult
	now := time.Now()

	admins := repository.NewAdminRepo(db)
	if _, err := admins.Get(ctx); err == repository.ErrNotFound {
		hash, err := utils.HashPassword(opts.AdminPassword, opts.BcryptCost)
		if err != nil {
			return res, fmt.Errorf("hash admin password: %w", err)
		}
		if res.AdminCreated, err = admins.EnsureDefault(ctx, opts.AdminUsername, hash, now); err != nil {
			return res, fmt.Errorf("seed admin: %w", err)
		}
	} else if err != nil {
		return res, fmt.Errorf("read admin: %w", err)
	}

	n, err := repository.NewCatalogRepo(db).SeedDefaults(ctx, model.DefaultCatalog, now)
	if err != nil {
		return res, fmt.Errorf("seed catalog: %w", err)
	}
	res.Models = n
	return res, nil
}
