package delivery

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dashmail/internal/capture"
	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/queue"
	"github.com/dashmail/internal/report"
)

// ScheduleStore reads schedule records at execution time.
type ScheduleStore interface {
	GetDashboardSchedule(id uint) (*models.DashboardEmailSchedule, error)
	GetSliceSchedule(id uint) (*models.SliceEmailSchedule, error)
}

// CaptureEngine produces artifacts for a target.
type CaptureEngine interface {
	CaptureDashboard(ctx context.Context, dashboard *models.Dashboard) ([]byte, error)
	CaptureSlice(ctx context.Context, slice *models.Slice) ([]byte, error)
	FetchSliceData(ctx context.Context, slice *models.Slice) (*capture.SliceData, error)
}

// Mailer dispatches prepared content to a schedule's recipients.
type Mailer interface {
	Deliver(ctx context.Context, schedule *models.EmailSchedule, subject string, content *report.EmailContent) error
}

// FailureNotifier is told about terminal delivery failures. Best effort.
type FailureNotifier interface {
	NotifyFailure(reportType models.ScheduleType, scheduleID uint, err error)
}

// TaskName keys a delivery task by report type and schedule id.
func TaskName(reportType models.ScheduleType, scheduleID uint) string {
	return fmt.Sprintf("email_report:%s:%d", reportType, scheduleID)
}

// Runner executes one triggered delivery end to end: re-fetch the schedule,
// capture, format, send. Capture and formatting complete fully before any
// send is attempted, so a failed delivery never dispatches a partial email.
type Runner struct {
	store     ScheduleStore
	engine    CaptureEngine
	formatter *report.Formatter
	mailer    Mailer
	notifier  FailureNotifier

	baseURL       string
	subjectPrefix string
}

func NewRunner(store ScheduleStore, engine CaptureEngine, formatter *report.Formatter, mailer Mailer, notifier FailureNotifier, baseURL, subjectPrefix string) *Runner {
	return &Runner{
		store:         store,
		engine:        engine,
		formatter:     formatter,
		mailer:        mailer,
		notifier:      notifier,
		baseURL:       baseURL,
		subjectPrefix: subjectPrefix,
	}
}

// Task builds the queue task delivering the given schedule.
func (r *Runner) Task(reportType models.ScheduleType, scheduleID uint) func(ctx context.Context) (queue.Outcome, error) {
	return func(ctx context.Context) (queue.Outcome, error) {
		return r.Run(ctx, reportType, scheduleID)
	}
}

// Run executes the delivery. A schedule deactivated since enqueue time is a
// normal skip, not an error. Any other failure is terminal for this run;
// the queue's own policy decides what happens next.
func (r *Runner) Run(ctx context.Context, reportType models.ScheduleType, scheduleID uint) (queue.Outcome, error) {
	outcome, err := r.run(ctx, reportType, scheduleID)
	if err != nil && r.notifier != nil {
		r.notifier.NotifyFailure(reportType, scheduleID, err)
	}
	return outcome, err
}

func (r *Runner) run(ctx context.Context, reportType models.ScheduleType, scheduleID uint) (queue.Outcome, error) {
	switch reportType {
	case models.ScheduleTypeDashboard:
		return r.deliverDashboard(ctx, scheduleID)
	case models.ScheduleTypeSlice:
		return r.deliverSlice(ctx, scheduleID)
	default:
		return "", fmt.Errorf("unknown report type %q", reportType)
	}
}

func (r *Runner) deliverDashboard(ctx context.Context, scheduleID uint) (queue.Outcome, error) {
	schedule, err := r.store.GetDashboardSchedule(scheduleID)
	if err != nil {
		return "", err
	}
	// The schedule may have been deactivated between enqueue time and now.
	if !schedule.Active {
		log.Infof("dashboard schedule %d inactive at run time, skipping", scheduleID)
		return queue.OutcomeSkipped, nil
	}
	if err := validateDeliveryType(schedule.DeliveryType); err != nil {
		return "", err
	}

	shot, err := r.engine.CaptureDashboard(ctx, &schedule.Dashboard)
	if err != nil {
		return "", err
	}

	link := schedule.Dashboard.ViewerURL(r.baseURL)
	content, err := r.formatter.FormatScreenshot(schedule.DeliveryType, shot, schedule.Dashboard.Title, link)
	if err != nil {
		return "", err
	}

	subject := r.subjectPrefix + schedule.Dashboard.Title
	if err := r.mailer.Deliver(ctx, &schedule.EmailSchedule, subject, content); err != nil {
		return "", err
	}
	return queue.OutcomeCompleted, nil
}

func (r *Runner) deliverSlice(ctx context.Context, scheduleID uint) (queue.Outcome, error) {
	schedule, err := r.store.GetSliceSchedule(scheduleID)
	if err != nil {
		return "", err
	}
	if !schedule.Active {
		log.Infof("slice schedule %d inactive at run time, skipping", scheduleID)
		return queue.OutcomeSkipped, nil
	}
	// Reject unknown combinations before any capture or network call.
	if err := validateDeliveryType(schedule.DeliveryType); err != nil {
		return "", err
	}

	link := schedule.Slice.ViewerURL(r.baseURL)

	var content *report.EmailContent
	switch schedule.EmailFormat {
	case models.FormatVisualization:
		shot, err := r.engine.CaptureSlice(ctx, &schedule.Slice)
		if err != nil {
			return "", err
		}
		content, err = r.formatter.FormatScreenshot(schedule.DeliveryType, shot, schedule.Slice.Name, link)
		if err != nil {
			return "", err
		}
	case models.FormatData:
		data, err := r.engine.FetchSliceData(ctx, &schedule.Slice)
		if err != nil {
			return "", err
		}
		content, err = r.formatter.FormatSliceData(schedule.DeliveryType, data, schedule.Slice.Name, link)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: email format %q", report.ErrUnsupportedFormat, schedule.EmailFormat)
	}

	subject := r.subjectPrefix + schedule.Slice.Name
	if err := r.mailer.Deliver(ctx, &schedule.EmailSchedule, subject, content); err != nil {
		return "", err
	}
	return queue.OutcomeCompleted, nil
}

func validateDeliveryType(delivery models.EmailDeliveryType) error {
	switch delivery {
	case models.DeliveryAttachment, models.DeliveryInline:
		return nil
	default:
		return fmt.Errorf("%w: delivery type %q", report.ErrUnsupportedFormat, delivery)
	}
}
