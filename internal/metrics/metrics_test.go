package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingOutcome.WithLabelValues("CONFIRMED"))
	IncBookingTransition("CONFIRMED")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingOutcome.WithLabelValues("CONFIRMED")))

	swept := testutil.ToFloat64(sweptReservations)
	AddSweptReservations(3)
	assert.Equal(t, swept+3, testutil.ToFloat64(sweptReservations))

	retries := testutil.ToFloat64(lockRetries)
	IncLockRetry()
	assert.Equal(t, retries+1, testutil.ToFloat64(lockRetries))
}
