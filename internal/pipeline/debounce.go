package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gitpulse/internal/model"
)

// Debounce collapses bursts of change events into single sync requests.
// The window slides: every event pushes the deadline to now+window, so a
// continuously written file never triggers mid-write. The output channel
// holds at most one request; a request produced while the previous one
// is still unconsumed coalesces into it rather than queuing behind it.
func Debounce(inCh <-chan model.ChangeEvent, window time.Duration) <-chan model.SyncRequest {
	outCh := make(chan model.SyncRequest, 1)

	go func() {
		defer close(outCh)

		var timer *time.Timer
		var timerCh <-chan time.Time
		var last model.ChangeEvent

		for {
			select {
			case event, ok := <-inCh:
				if !ok {
					if timerCh != nil {
						timer.Stop()
						emit(outCh, last)
					}
					return
				}

				last = event
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(window)
				timerCh = timer.C

			case <-timerCh:
				emit(outCh, last)
				timerCh = nil
			}
		}
	}()

	return outCh
}

func emit(outCh chan<- model.SyncRequest, last model.ChangeEvent) {
	req := model.SyncRequest{
		Reason:      Reason(last),
		RequestedAt: time.Now(),
	}

	select {
	case outCh <- req:
	default:
		// A request is already pending; its status scan will observe
		// these changes too.
	}
}

// Reason summarizes the last event of a burst for commit messages.
func Reason(event model.ChangeEvent) string {
	return fmt.Sprintf("%s %s", strings.ToLower(string(event.Type)), filepath.Base(event.Path))
}
