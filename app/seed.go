package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/tenant"
	"go.uber.org/zap"
)

// seedDemoData inserts the demo tenants and, when a bootstrap password is
// configured, an admin user in each active one. Existing rows are kept.
func (d *Dependencies) seedDemoData(ctx context.Context) error {
	for _, t := range tenant.DemoTenants() {
		if err := d.Repos.Tenants.Create(ctx, t); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
		d.Logger.Info("demo tenant created", zap.String("tenant_id", t.ID))
	}

	password := d.Config.Auth.BootstrapAdminPassword
	if password == "" {
		return nil
	}

	hash, err := services.HashPasswordWithCost(password, d.Config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	email := d.Config.Auth.BootstrapAdminEmail
	for _, t := range tenant.DemoTenants() {
		if !t.IsActive {
			continue
		}
		admin := models.NewUser(t.ID, email, "Administrator", hash, auth.RoleAdmin)
		if err := d.Repos.Users.Create(ctx, admin); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed admin for tenant %s: %w", t.ID, err)
		}
		d.Logger.Info("bootstrap admin created",
			zap.String("tenant_id", t.ID),
			zap.String("email", email))
	}
	return nil
}
