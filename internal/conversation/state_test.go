package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_RecordTurn(t *testing.T) {
	s := NewState()

	s.RecordTurn("A", "dessert")
	s.RecordTurn("B", "")

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.TurnCount)
	assert.Equal(t, "B", snap.LastSpeaker)
	assert.Equal(t, "dessert", snap.Topic, "empty topic keeps the previous one")

	s.RecordTurn("A", "brunch")
	assert.Equal(t, "brunch", s.Snapshot().Topic)
}

func TestState_MarkStartedOnce(t *testing.T) {
	s := NewState()

	assert.True(t, s.MarkStarted())
	assert.False(t, s.MarkStarted())
	assert.False(t, s.MarkStarted())
	assert.True(t, s.Snapshot().Started)
}

func TestState_MarkStartedConcurrent(t *testing.T) {
	s := NewState()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkStarted() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestState_TurnCountMonotonic(t *testing.T) {
	s := NewState()
	prev := 0
	for i := 0; i < 10; i++ {
		speaker := "A"
		if i%2 == 1 {
			speaker = "B"
		}
		s.RecordTurn(speaker, "")
		snap := s.Snapshot()
		assert.Equal(t, prev+1, snap.TurnCount)
		assert.Equal(t, speaker, snap.LastSpeaker)
		prev = snap.TurnCount
	}
}

func TestState_SetCurrentLeavesCounters(t *testing.T) {
	s := NewState()
	s.SetCurrent("B")

	snap := s.Snapshot()
	assert.Equal(t, "B", snap.CurrentSpeaker)
	assert.Zero(t, snap.TurnCount)
	assert.Empty(t, snap.LastSpeaker)
}
