package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

type countingCounter struct{ total float64 }

func (c *countingCounter) Add(d float64, _ ...observability.Label) { c.total += d }

func TestNewResolvesRegisteredAndMissingInstruments(t *testing.T) {
	c := &countingCounter{}
	obs := New(nil, nil, map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: c,
		observability.MHTTPRequests:    nil,
	}, nil)

	obs.Metrics().Counter(observability.MUsecaseRequests).Add(2)
	obs.Metrics().Counter(observability.MHTTPRequests).Add(5)
	obs.Metrics().Histogram(observability.MUsecaseDuration).Observe(1)

	assert.Equal(t, 2.0, c.total)
	assert.NotNil(t, obs.Tracer())
	assert.NotNil(t, obs.Logger())
}
