package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitpulse/internal/model"
)

func event(path string) model.ChangeEvent {
	return model.ChangeEvent{
		Type:       model.EventWrite,
		Path:       path,
		ObservedAt: time.Now(),
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	inCh := make(chan model.ChangeEvent, 16)
	outCh := Debounce(inCh, 50*time.Millisecond)

	for i := 0; i < 10; i++ {
		inCh <- event("a.go")
		time.Sleep(5 * time.Millisecond)
	}
	close(inCh)

	var requests []model.SyncRequest
	for req := range outCh {
		requests = append(requests, req)
	}

	require.Len(t, requests, 1)
	assert.Equal(t, "write a.go", requests[0].Reason)
}

func TestDebounceEmitsPerSettledGroup(t *testing.T) {
	inCh := make(chan model.ChangeEvent, 16)
	outCh := Debounce(inCh, 30*time.Millisecond)

	done := make(chan []model.SyncRequest)
	go func() {
		var requests []model.SyncRequest
		for req := range outCh {
			requests = append(requests, req)
		}
		done <- requests
	}()

	inCh <- event("a.go")
	time.Sleep(80 * time.Millisecond)
	inCh <- event("b.go")
	time.Sleep(80 * time.Millisecond)
	inCh <- event("c.go")
	time.Sleep(80 * time.Millisecond)
	close(inCh)

	requests := <-done
	require.Len(t, requests, 3)
	assert.Equal(t, "write a.go", requests[0].Reason)
	assert.Equal(t, "write b.go", requests[1].Reason)
	assert.Equal(t, "write c.go", requests[2].Reason)
}

func TestDebounceSlidingWindowDelaysEmit(t *testing.T) {
	inCh := make(chan model.ChangeEvent, 16)
	outCh := Debounce(inCh, 200*time.Millisecond)

	// Keep resetting the window; nothing may fire while events flow.
	start := time.Now()
	for i := 0; i < 5; i++ {
		inCh <- event("busy.go")
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case req := <-outCh:
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond,
			"request %q fired mid-burst after %s", req.Reason, elapsed)
	case <-time.After(time.Second):
		t.Fatal("no request after burst settled")
	}

	close(inCh)
}

func TestDebounceCoalescesUnconsumedRequests(t *testing.T) {
	inCh := make(chan model.ChangeEvent, 16)
	outCh := Debounce(inCh, 20*time.Millisecond)

	// Two settled groups with no consumer in between: the second
	// coalesces into the buffered slot instead of blocking.
	inCh <- event("a.go")
	time.Sleep(60 * time.Millisecond)
	inCh <- event("b.go")
	time.Sleep(60 * time.Millisecond)
	close(inCh)

	var requests []model.SyncRequest
	for req := range outCh {
		requests = append(requests, req)
	}

	require.Len(t, requests, 1)
}

func TestDebounceFlushesPendingOnClose(t *testing.T) {
	inCh := make(chan model.ChangeEvent, 16)
	outCh := Debounce(inCh, time.Hour)

	inCh <- event("pending.go")
	time.Sleep(10 * time.Millisecond)
	close(inCh)

	var requests []model.SyncRequest
	for req := range outCh {
		requests = append(requests, req)
	}

	require.Len(t, requests, 1)
	assert.Equal(t, "write pending.go", requests[0].Reason)
}
