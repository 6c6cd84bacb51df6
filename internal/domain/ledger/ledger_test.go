package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Contains(t *testing.T) {
	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	w := Between(from, to)

	assert.True(t, w.Contains(from))
	assert.True(t, w.Contains(to.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(to))
	assert.False(t, w.Contains(from.Add(-time.Second)))

	assert.True(t, AllTime.Contains(time.Time{}))
	assert.True(t, AllTime.IsUnbounded())
	assert.True(t, Since(from).Contains(to.AddDate(10, 0, 0)))
	assert.False(t, Since(from).IsUnbounded())
}

func TestReceipt_PreviousTotal(t *testing.T) {
	r := Receipt{Transaction: Transaction{Delta: 50}, Total: 100}
	assert.Equal(t, int64(50), r.PreviousTotal())

	r = Receipt{Transaction: Transaction{Delta: -3}, Total: 47}
	assert.Equal(t, int64(50), r.PreviousTotal())
}
