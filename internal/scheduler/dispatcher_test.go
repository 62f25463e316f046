package scheduler

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/dashmail/internal/cronwin"
	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/queue"
)

type fakeLister struct {
	dashboards []models.DashboardEmailSchedule
	slices     []models.SliceEmailSchedule
}

func (f *fakeLister) ActiveDashboardSchedules() ([]models.DashboardEmailSchedule, error) {
	return f.dashboards, nil
}

func (f *fakeLister) ActiveSliceSchedules() ([]models.SliceEmailSchedule, error) {
	return f.slices, nil
}

type fakeQueue struct {
	tasks []queue.Task
}

func (f *fakeQueue) Enqueue(t queue.Task) error {
	f.tasks = append(f.tasks, t)
	return nil
}

type fakeBuilder struct{}

func (f *fakeBuilder) Task(reportType models.ScheduleType, scheduleID uint) func(ctx context.Context) (queue.Outcome, error) {
	return func(ctx context.Context) (queue.Outcome, error) {
		return queue.OutcomeCompleted, nil
	}
}

func dashboardWithCrontab(id uint, crontab string) models.DashboardEmailSchedule {
	return models.DashboardEmailSchedule{
		EmailSchedule: models.EmailSchedule{
			Model:   gorm.Model{ID: id},
			Active:  true,
			Crontab: crontab,
		},
	}
}

func TestScheduleWindowEnqueuesPerEta(t *testing.T) {
	lister := &fakeLister{dashboards: []models.DashboardEmailSchedule{
		dashboardWithCrontab(1, "0 * * * *"),   // hourly
		dashboardWithCrontab(2, "30 0 * * *"),  // once, 00:30
	}}
	q := &fakeQueue{}
	d := NewDispatcher(lister, q, cronwin.New(), &fakeBuilder{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stop := start.Add(3 * time.Hour)
	if err := d.ScheduleWindow(models.ScheduleTypeDashboard, start, stop, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Schedule 1 fires at 00:00, 01:00, 02:00; schedule 2 at 00:30.
	if len(q.tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d: %+v", len(q.tasks), q.tasks)
	}

	byName := map[string][]time.Time{}
	for _, task := range q.tasks {
		byName[task.Name] = append(byName[task.Name], task.ETA)
		if task.ETA.Before(start) || !task.ETA.Before(stop) {
			t.Errorf("task %s eta %v outside window", task.Name, task.ETA)
		}
	}
	if got := byName["email_report:dashboard:1"]; len(got) != 3 {
		t.Errorf("schedule 1 got %d etas: %v", len(got), got)
	}
	if got := byName["email_report:dashboard:2"]; len(got) != 1 {
		t.Errorf("schedule 2 got %d etas: %v", len(got), got)
	}

	// Within one schedule, etas are enqueued in ascending order.
	etas := byName["email_report:dashboard:1"]
	for i := 1; i < len(etas); i++ {
		if !etas[i].After(etas[i-1]) {
			t.Errorf("etas out of order: %v", etas)
		}
	}
}

func TestScheduleWindowResolutionThrottles(t *testing.T) {
	lister := &fakeLister{dashboards: []models.DashboardEmailSchedule{
		dashboardWithCrontab(1, "0 * * * *"),
	}}
	q := &fakeQueue{}
	d := NewDispatcher(lister, q, cronwin.New(), &fakeBuilder{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := d.ScheduleWindow(models.ScheduleTypeDashboard, start, start.Add(3*time.Hour), 2*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.tasks) != 2 {
		t.Fatalf("expected throttling to keep 2 of 3 etas, got %d", len(q.tasks))
	}
}

func TestScheduleWindowSkipsMalformedCrontab(t *testing.T) {
	lister := &fakeLister{dashboards: []models.DashboardEmailSchedule{
		dashboardWithCrontab(1, "not a crontab"),
		dashboardWithCrontab(2, "0 * * * *"),
	}}
	q := &fakeQueue{}
	d := NewDispatcher(lister, q, cronwin.New(), &fakeBuilder{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := d.ScheduleWindow(models.ScheduleTypeDashboard, start, start.Add(time.Hour), 0); err != nil {
		t.Fatalf("one bad crontab must not abort the window: %v", err)
	}

	for _, task := range q.tasks {
		if task.Name == "email_report:dashboard:1" {
			t.Error("malformed crontab still produced a task")
		}
	}
	if len(q.tasks) != 1 {
		t.Errorf("expected 1 task from the valid schedule, got %d", len(q.tasks))
	}
}

func TestScheduleWindowUnknownType(t *testing.T) {
	d := NewDispatcher(&fakeLister{}, &fakeQueue{}, cronwin.New(), &fakeBuilder{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := d.ScheduleWindow("pie chart", start, start.Add(time.Hour), 0); err == nil {
		t.Fatal("expected error for unknown report type")
	}
}
