package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Outcome is how a task run ended when it did not fail.
type Outcome string

const (
	// OutcomeCompleted means the task did its work.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkipped means the task decided there was nothing to do.
	// This is a normal result, not a failure.
	OutcomeSkipped Outcome = "skipped"
)

// Status is the lifecycle state of a queued run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

var (
	ErrStopped   = errors.New("queue stopped")
	ErrQueueFull = errors.New("queue full")
)

// Task is a unit of work scheduled for execution at or after ETA.
// A zero ETA means "as soon as a worker is free".
type Task struct {
	ID   string
	Name string
	ETA  time.Time
	Run  func(ctx context.Context) (Outcome, error)
}

// RunRecord is the observable history of one task run.
type RunRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ETA      time.Time     `json:"eta"`
	Started  time.Time     `json:"started,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
}

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration // soft execution budget per run
	HistorySize int
}

// Queue executes tasks from a channel using a worker pool. Tasks with a
// future ETA are held by a timer until due. Execution order between tasks
// due at the same moment is not guaranteed.
type Queue struct {
	mu     sync.Mutex
	cfg    Config
	tasks  chan Task
	stopCh chan struct{}
	wg     sync.WaitGroup

	tmu    sync.Mutex
	timers map[string]*time.Timer

	hmu     sync.Mutex
	history []*RunRecord
	index   map[string]*RunRecord
}

func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 200
	}
	return &Queue{
		cfg:    cfg,
		timers: map[string]*time.Timer{},
		index:  map[string]*RunRecord{},
	}
}

func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopCh != nil {
		return
	}
	q.stopCh = make(chan struct{})
	q.tasks = make(chan Task, q.cfg.QueueSize)

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, q.stopCh, q.tasks, i)
	}
	log.Infof("task queue started with %d workers", q.cfg.Workers)
}

func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopCh == nil {
		q.mu.Unlock()
		return
	}
	stopCh := q.stopCh
	q.stopCh = nil
	q.mu.Unlock()

	close(stopCh)

	q.tmu.Lock()
	for id, tmr := range q.timers {
		tmr.Stop()
		delete(q.timers, id)
	}
	q.tmu.Unlock()

	q.wg.Wait()
	log.Info("task queue stopped")
}

// Enqueue schedules a task for execution at or after its ETA.
func (q *Queue) Enqueue(t Task) error {
	if t.Run == nil {
		return errors.New("task Run is nil")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	q.mu.Lock()
	stopCh := q.stopCh
	tasks := q.tasks
	q.mu.Unlock()
	if stopCh == nil {
		return ErrStopped
	}

	q.record(&RunRecord{ID: t.ID, Name: t.Name, ETA: t.ETA, Status: StatusPending})

	delay := time.Until(t.ETA)
	if delay <= 0 {
		return q.push(t, stopCh, tasks)
	}

	q.tmu.Lock()
	q.timers[t.ID] = time.AfterFunc(delay, func() {
		q.tmu.Lock()
		delete(q.timers, t.ID)
		q.tmu.Unlock()
		if err := q.push(t, stopCh, tasks); err != nil {
			q.finish(t.ID, StatusFailed, time.Time{}, 0, err)
		}
	})
	q.tmu.Unlock()
	return nil
}

func (q *Queue) push(t Task, stopCh <-chan struct{}, tasks chan<- Task) error {
	select {
	case tasks <- t:
		return nil
	case <-stopCh:
		return ErrStopped
	default:
	}
	log.Warnf("task queue full, dropping task %s", t.Name)
	err := fmt.Errorf("%v: %s", ErrQueueFull, t.Name)
	q.finish(t.ID, StatusFailed, time.Time{}, 0, err)
	return err
}

func (q *Queue) worker(ctx context.Context, stopCh <-chan struct{}, tasks <-chan Task, idx int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-tasks:
			q.execOne(ctx, t)
		}
	}
}

func (q *Queue) execOne(ctx context.Context, t Task) {
	started := time.Now()
	q.transition(t.ID, StatusRunning, started)

	runCtx := ctx
	if q.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, q.cfg.TaskTimeout)
		defer cancel()
	}

	outcome, err := t.Run(runCtx)
	dur := time.Since(started)

	switch {
	case err != nil:
		log.WithField("task", t.Name).Errorf("task failed after %s: %v", dur, err)
		q.finish(t.ID, StatusFailed, started, dur, err)
	case outcome == OutcomeSkipped:
		log.WithField("task", t.Name).Debug("task skipped")
		q.finish(t.ID, StatusSkipped, started, dur, nil)
	default:
		log.WithField("task", t.Name).Infof("task completed in %s", dur)
		q.finish(t.ID, StatusCompleted, started, dur, nil)
	}
}

func (q *Queue) record(r *RunRecord) {
	q.hmu.Lock()
	defer q.hmu.Unlock()
	q.history = append(q.history, r)
	q.index[r.ID] = r
	if len(q.history) > q.cfg.HistorySize {
		drop := q.history[:len(q.history)-q.cfg.HistorySize]
		for _, old := range drop {
			delete(q.index, old.ID)
		}
		q.history = q.history[len(q.history)-q.cfg.HistorySize:]
	}
}

func (q *Queue) transition(id string, status Status, started time.Time) {
	q.hmu.Lock()
	defer q.hmu.Unlock()
	if r, ok := q.index[id]; ok {
		r.Status = status
		r.Started = started
	}
}

func (q *Queue) finish(id string, status Status, started time.Time, dur time.Duration, err error) {
	q.hmu.Lock()
	defer q.hmu.Unlock()
	r, ok := q.index[id]
	if !ok {
		return
	}
	r.Status = status
	if !started.IsZero() {
		r.Started = started
	}
	r.Duration = dur
	if err != nil {
		r.Error = err.Error()
	}
}

// Snapshot returns a copy of the run history, oldest first.
func (q *Queue) Snapshot() []RunRecord {
	q.hmu.Lock()
	defer q.hmu.Unlock()
	out := make([]RunRecord, 0, len(q.history))
	for _, r := range q.history {
		out = append(out, *r)
	}
	return out
}
