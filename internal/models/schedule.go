package models

import (
	"gorm.io/gorm"
)

type ScheduleType string

const (
	ScheduleTypeDashboard ScheduleType = "dashboard"
	ScheduleTypeSlice     ScheduleType = "slice"
)

type EmailDeliveryType string

const (
	DeliveryAttachment EmailDeliveryType = "Attachment"
	DeliveryInline     EmailDeliveryType = "Inline"
)

type SliceEmailReportFormat string

const (
	FormatVisualization SliceEmailReportFormat = "Visualization"
	FormatData          SliceEmailReportFormat = "Raw data"
)

// EmailSchedule holds the fields shared by dashboard and slice schedules.
// Schedule records are owned by the web application; this service only
// reads them.
type EmailSchedule struct {
	gorm.Model
	Active         bool              `gorm:"default:true;index" json:"active"`
	Crontab        string            `gorm:"size:50" json:"crontab"`
	Recipients     string            `gorm:"type:text" json:"recipients"`
	DeliverAsGroup bool              `gorm:"default:false" json:"deliver_as_group"`
	DeliveryType   EmailDeliveryType `gorm:"size:20" json:"delivery_type"`
	UserID         uint              `json:"user_id"`
}

type DashboardEmailSchedule struct {
	EmailSchedule
	DashboardID uint      `json:"dashboard_id"`
	Dashboard   Dashboard `gorm:"foreignKey:DashboardID" json:"dashboard"`
}

type SliceEmailSchedule struct {
	EmailSchedule
	SliceID     uint                   `json:"slice_id"`
	Slice       Slice                  `gorm:"foreignKey:SliceID" json:"slice"`
	EmailFormat SliceEmailReportFormat `gorm:"size:20" json:"email_format"`
}
