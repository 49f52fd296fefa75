package voucher

import "time"

type GrantStatus string

const (
	GrantAvailable GrantStatus = "available"
	GrantUsed      GrantStatus = "used"
	GrantExpired   GrantStatus = "expired"
)

// Grant records that a user claimed a voucher. One grant exists per (user, voucher).
type Grant struct {
	ID        string
	UserID    string
	VoucherID string
	Status    GrantStatus
	UsedAt    *time.Time
	CreatedAt time.Time
}

// EffectiveStatus reports an available grant of an ended voucher as expired.
func (g *Grant) EffectiveStatus(v *Voucher, now time.Time) GrantStatus {
	if g.Status == GrantAvailable && v != nil && now.After(v.EndDate) {
		return GrantExpired
	}
	return g.Status
}

func (g *Grant) Clone() *Grant {
	if g == nil {
		return nil
	}
	c := *g
	if g.UsedAt != nil {
		t := *g.UsedAt
		c.UsedAt = &t
	}
	return &c
}

// Quote is the outcome of a successful validation.
type Quote struct {
	Voucher  *Voucher
	Discount int64
}

// Redemption identifies one consumed voucher so it can be restored.
type Redemption struct {
	UserID    string
	VoucherID string
	GrantUsed bool
}
