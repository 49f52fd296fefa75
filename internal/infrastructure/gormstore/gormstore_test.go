package gormstore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/storetest"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

var dsnName = strings.NewReplacer("/", "_", " ", "_", "#", "_")

func TestRepositoryContracts(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Stores {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName.Replace(t.Name()))
		db, err := Open(dsn, observability.NopLogger())
		require.NoError(t, err)
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})

		return storetest.Stores{
			Inventory:     NewInventoryRepository(db),
			Orders:        NewOrderRepository(db),
			Requests:      NewRequestRepository(db),
			Payments:      NewPaymentRepository(db),
			Vouchers:      NewVoucherRepository(db),
			Grants:        NewGrantRepository(db),
			Notifications: NewNotificationRepository(db),
			Carts:         NewCartRepository(db),
			Users:         NewUserRepository(db),
		}
	})
}
