package scheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dashmail/internal/models"
)

// Ticker fires once per hour on the hour and dispatches both report types
// over the hour window just starting. Consecutive windows tile wall-clock
// time without overlap or gap, so a schedule never double-fires or skips.
type Ticker struct {
	dispatcher *Dispatcher

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewTicker(dispatcher *Dispatcher) *Ticker {
	return &Ticker{dispatcher: dispatcher}
}

func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		return
	}
	t.stopCh = make(chan struct{})
	t.wg.Add(1)
	go t.loop(ctx, t.stopCh)
	log.Info("hourly dispatch ticker started")
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	if t.stopCh == nil {
		t.mu.Unlock()
		return
	}
	close(t.stopCh)
	t.stopCh = nil
	t.mu.Unlock()
	t.wg.Wait()
	log.Info("hourly dispatch ticker stopped")
}

func (t *Ticker) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer t.wg.Done()
	for {
		next := time.Now().Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			t.tick(next)
		}
	}
}

// tick dispatches the window [startAt, startAt+1h) for both report types
// with no throttling resolution.
func (t *Ticker) tick(startAt time.Time) {
	stopAt := startAt.Add(time.Hour)
	for _, reportType := range []models.ScheduleType{models.ScheduleTypeDashboard, models.ScheduleTypeSlice} {
		if err := t.dispatcher.ScheduleWindow(reportType, startAt, stopAt, 0); err != nil {
			log.Errorf("failed to dispatch %s window starting %v: %v", reportType, startAt, err)
		}
	}
}
