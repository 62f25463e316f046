package capture

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dashmail/internal/models"
)

const (
	dashboardContainerID = "grid-container"
	sliceContainerClass  = "chart-container"
	loginBoxID           = "loginbox"
)

// UpstreamHTTPError is a non-success status from the chart data export
// endpoint. It fails the delivery that hit it.
type UpstreamHTTPError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("data export %s returned status %d", e.URL, e.StatusCode)
}

// SliceData is a tabular export: first row of the response is the header,
// the rest are data rows. Raw keeps the untouched response body for
// attachment delivery.
type SliceData struct {
	Columns []string
	Rows    [][]string
	Raw     []byte
}

// Authenticator produces session cookie values for the service account.
type Authenticator interface {
	Authenticate(ctx context.Context) ([]string, error)
	CookieName() string
}

type Config struct {
	BaseURL         string
	WelcomePath     string
	RenderWait      time.Duration
	DashboardWindow []int
	SliceWindow     []int
}

// Engine renders targets in a browser session and captures screenshots, and
// fetches tabular exports over HTTP. Each capture acquires its own session
// and closes it on every exit path.
type Engine struct {
	driver Driver
	auth   Authenticator
	cfg    Config
	client *http.Client
}

func NewEngine(driver Driver, auth Authenticator, cfg Config) *Engine {
	return &Engine{
		driver: driver,
		auth:   auth,
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// CaptureDashboard screenshots the dashboard grid container.
func (e *Engine) CaptureDashboard(ctx context.Context, dashboard *models.Dashboard) ([]byte, error) {
	return e.screenshot(ctx, dashboard.ViewerURL(e.cfg.BaseURL), e.cfg.DashboardWindow, func(s Session) (Element, error) {
		return s.ElementByID(dashboardContainerID)
	})
}

// CaptureSlice screenshots the chart container of a single slice.
func (e *Engine) CaptureSlice(ctx context.Context, slice *models.Slice) ([]byte, error) {
	return e.screenshot(ctx, slice.ViewerURL(e.cfg.BaseURL), e.cfg.SliceWindow, func(s Session) (Element, error) {
		return s.ElementByClass(sliceContainerClass)
	})
}

func (e *Engine) screenshot(ctx context.Context, targetURL string, window []int, locate func(Session) (Element, error)) ([]byte, error) {
	sess, err := e.driver.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %v", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warnf("failed to close browser session: %v", cerr)
		}
	}()

	if len(window) == 2 {
		if err := sess.SetViewport(window[0], window[1]); err != nil {
			return nil, fmt.Errorf("failed to set viewport: %v", err)
		}
	}

	// Hit the welcome page first; a login box there means the session is
	// not authenticated yet and needs the service account cookie.
	if err := sess.Navigate(e.welcomeURL()); err != nil {
		return nil, fmt.Errorf("failed to open welcome page: %v", err)
	}
	prompted, err := sess.HasElementByID(loginBoxID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for login prompt: %v", err)
	}
	if prompted {
		cookies, err := e.auth.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		for _, value := range cookies {
			if err := sess.AddCookie(e.auth.CookieName(), value); err != nil {
				return nil, fmt.Errorf("failed to inject session cookie: %v", err)
			}
		}
	}

	if err := sess.Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", targetURL, err)
	}

	// Fixed settle delay: the page exposes no reliable "finished rendering"
	// signal, so we wait a configured amount of wall time.
	if e.cfg.RenderWait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.RenderWait):
		}
	}

	element, err := retryTransient(2, func(err error) bool {
		return errors.Is(err, ErrTransport)
	}, func() (Element, error) {
		return locate(sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to locate report container: %w", err)
	}

	shot, err := element.Screenshot()
	if errors.Is(err, ErrElementShotUnsupported) {
		// Capability fallback: capture the whole page instead.
		log.Debug("element screenshot unsupported, falling back to full page")
		return sess.Screenshot()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %v", err)
	}
	return shot, nil
}

// FetchSliceData fetches and parses the CSV export of a slice using an
// authenticated HTTP request.
func (e *Engine) FetchSliceData(ctx context.Context, slice *models.Slice) (*SliceData, error) {
	cookies, err := e.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	exportURL := slice.ExportURL(e.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build export request: %v", err)
	}
	for _, value := range cookies {
		req.AddCookie(&http.Cookie{Name: e.auth.CookieName(), Value: value})
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %v", exportURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamHTTPError{URL: exportURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export from %s: %v", exportURL, err)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse export from %s: %v", exportURL, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("export from %s is empty", exportURL)
	}

	return &SliceData{Columns: records[0], Rows: records[1:], Raw: raw}, nil
}

func (e *Engine) welcomeURL() string {
	return strings.TrimRight(e.cfg.BaseURL, "/") + e.cfg.WelcomePath
}
