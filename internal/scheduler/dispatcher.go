package scheduler

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dashmail/internal/cronwin"
	"github.com/dashmail/internal/delivery"
	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/queue"
)

// ScheduleLister reads the active schedules of each report type.
type ScheduleLister interface {
	ActiveDashboardSchedules() ([]models.DashboardEmailSchedule, error)
	ActiveSliceSchedules() ([]models.SliceEmailSchedule, error)
}

// TaskQueue accepts delivery tasks for execution at an eta.
type TaskQueue interface {
	Enqueue(t queue.Task) error
}

// TaskBuilder produces the run function for one schedule's delivery.
type TaskBuilder interface {
	Task(reportType models.ScheduleType, scheduleID uint) func(ctx context.Context) (queue.Outcome, error)
}

// Dispatcher resolves each active schedule's crontab over a time window and
// enqueues one delivery task per due eta.
type Dispatcher struct {
	store    ScheduleLister
	queue    TaskQueue
	resolver *cronwin.Resolver
	runner   TaskBuilder
}

func NewDispatcher(store ScheduleLister, taskQueue TaskQueue, resolver *cronwin.Resolver, runner TaskBuilder) *Dispatcher {
	return &Dispatcher{store: store, queue: taskQueue, resolver: resolver, runner: runner}
}

type pendingSchedule struct {
	id      uint
	crontab string
}

// ScheduleWindow enqueues a delivery task for every (schedule, eta) pair of
// the given report type due in [startAt, stopAt). Within one schedule, etas
// are enqueued in ascending order. A schedule with a malformed crontab is
// logged and skipped; it does not abort the window for the others.
func (d *Dispatcher) ScheduleWindow(reportType models.ScheduleType, startAt, stopAt time.Time, resolution time.Duration) error {
	var pending []pendingSchedule

	switch reportType {
	case models.ScheduleTypeDashboard:
		schedules, err := d.store.ActiveDashboardSchedules()
		if err != nil {
			return err
		}
		for _, s := range schedules {
			pending = append(pending, pendingSchedule{id: s.ID, crontab: s.Crontab})
		}
	case models.ScheduleTypeSlice:
		schedules, err := d.store.ActiveSliceSchedules()
		if err != nil {
			return err
		}
		for _, s := range schedules {
			pending = append(pending, pendingSchedule{id: s.ID, crontab: s.Crontab})
		}
	default:
		return fmt.Errorf("unknown report type %q", reportType)
	}

	for _, s := range pending {
		it, err := d.resolver.Window(s.crontab, startAt, stopAt, resolution)
		if err != nil {
			log.Errorf("skipping %s schedule %d: %v", reportType, s.id, err)
			continue
		}

		count := 0
		for {
			eta, ok := it.Next()
			if !ok {
				break
			}
			task := queue.Task{
				Name: delivery.TaskName(reportType, s.id),
				ETA:  eta,
				Run:  d.runner.Task(reportType, s.id),
			}
			if err := d.queue.Enqueue(task); err != nil {
				return fmt.Errorf("failed to enqueue %s for %v: %v", task.Name, eta, err)
			}
			count++
		}
		log.Debugf("%s schedule %d: %d etas in [%v, %v)", reportType, s.id, count, startAt, stopAt)
	}

	return nil
}
