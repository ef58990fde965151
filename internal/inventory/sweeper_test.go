package inventory

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleExpirySweep(t *testing.T) {
	f := newFixture(t)
	c := cron.New()

	id, err := ScheduleExpirySweep(context.Background(), c, "@every 1m", f.svc)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = ScheduleExpirySweep(context.Background(), c, "every minute", f.svc)
	assert.ErrorContains(t, err, "scheduling expiry sweep")
}
