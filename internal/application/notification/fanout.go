package notification

import (
	"context"
	"errors"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
)

// FanOut publishes every batch to each of its targets and joins their errors.
type FanOut []domain.PubSub

func (f FanOut) Publish(ctx context.Context, msgs ...domain.Message) error {
	var errs []error
	for _, ps := range f {
		if ps == nil {
			continue
		}
		if err := ps.Publish(ctx, msgs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
