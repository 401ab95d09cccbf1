// Package migration creates and evolves the database schema.
package migration

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

// Run migrates every persisted model. AutoMigrate is additive; it never drops
// columns or data.
func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migration")

	if err := db.AutoMigrate(
		&accountdomain.Tenant{},
		&accountdomain.Account{},
		&walletdomain.Wallet{},
		&ledgerdomain.Entry{},
		&runnerdomain.Job{},
		&orchestratordomain.RepairTask{},
	); err != nil {
		return err
	}

	log.Info("database migration completed")
	return nil
}
