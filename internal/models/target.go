package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dashboard is a renderable dashboard the web application serves.
type Dashboard struct {
	gorm.Model
	Slug  string `gorm:"uniqueIndex;not null" json:"slug"`
	Title string `gorm:"not null" json:"title"`
}

// ViewerURL returns the absolute URL of the dashboard viewer page.
func (d *Dashboard) ViewerURL(baseURL string) string {
	return joinURL(baseURL, fmt.Sprintf("/dashboard/%s/", d.Slug))
}

// Slice is a single chart the web application serves.
type Slice struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
}

// ViewerURL returns the absolute URL of the chart viewer page.
func (s *Slice) ViewerURL(baseURL string) string {
	return joinURL(baseURL, fmt.Sprintf("/slice/%d/", s.ID))
}

// ExportURL returns the absolute URL of the chart's CSV export endpoint.
func (s *Slice) ExportURL(baseURL string) string {
	return joinURL(baseURL, fmt.Sprintf("/slice_json/%d/?csv=true", s.ID))
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
