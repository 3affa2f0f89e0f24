package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09:30", "30 9 * * *"},
		{"00:00", "0 0 * * *"},
		{"@every 1h", "@every 1h"},
		{"*/15 * * * *", "*/15 * * * *"},
	}
	for _, tt := range tests {
		got, err := normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := normalize("")
	assert.Error(t, err)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("@every 1h", "UTC", nil)
	assert.Error(t, err)

	_, err = New("@every 1h", "Mars/Olympus", func() {})
	assert.Error(t, err)

	_, err = New("not a cron spec", "UTC", func() {})
	assert.Error(t, err)
}

func TestNextUsesLocation(t *testing.T) {
	s, err := New("07:15", "Europe/Moscow", func() {})
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	local := next.In(s.Location())
	assert.Equal(t, 7, local.Hour())
	assert.Equal(t, 15, local.Minute())
	assert.Equal(t, "15 7 * * *", s.Spec())
}

func TestUpdateReplacesEntry(t *testing.T) {
	s, err := New("07:15", "UTC", func() {})
	require.NoError(t, err)

	require.NoError(t, s.Update("22:05"))
	assert.Equal(t, "5 22 * * *", s.Spec())
	assert.Len(t, s.cron.Entries(), 1)

	assert.Error(t, s.Update("bogus"))
	assert.Equal(t, "5 22 * * *", s.Spec())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRunsJob(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", "UTC", func() { runs.Add(1) })
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
