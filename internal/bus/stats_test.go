package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandlerStats_RecordAndSnapshot(t *testing.T) {
	stats := newHandlerStats()

	stats.record(10*time.Millisecond, false)
	stats.record(20*time.Millisecond, true)
	stats.record(30*time.Millisecond, false)

	snap := stats.Snapshot()
	assert.Equal(t, uint64(3), snap.MessagesProcessed)
	assert.Equal(t, uint64(1), snap.MessagesFailed)
	assert.Equal(t, 3, snap.SampleSize)
	assert.Greater(t, snap.AverageNs, int64(0))
	assert.Greater(t, snap.P99Ns, int64(0))
}

func TestBus_Stats_ReturnsSameInstancePerHandlerName(t *testing.T) {
	pub := newRecordingPublisher()
	b := newTestBus(t, pub)

	first := b.Stats("outbound-dispatcher")
	first.record(5*time.Millisecond, false)

	second := b.Stats("outbound-dispatcher")
	assert.Equal(t, uint64(1), second.Snapshot().MessagesProcessed)

	other := b.Stats("webhook-ingress")
	assert.Equal(t, uint64(0), other.Snapshot().MessagesProcessed)
}
