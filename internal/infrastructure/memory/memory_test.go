package memory

import (
	"testing"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/infrastructure/storetest"
)

func TestRepositoryContracts(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Stores {
		return storetest.Stores{
			Inventory:     NewInventoryRepository(),
			Orders:        NewOrderRepository(),
			Requests:      NewRequestRepository(),
			Payments:      NewPaymentRepository(),
			Vouchers:      NewVoucherRepository(),
			Grants:        NewGrantRepository(),
			Notifications: NewNotificationRepository(),
			Carts:         NewCartRepository(),
			Users:         NewUserRepository(),
		}
	})
}
