package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const elementWait = 10 * time.Second

// RodDriver drives a headless Chromium instance through go-rod.
type RodDriver struct {
	cookieDomain string
}

// NewRodDriver returns a driver whose injected cookies are scoped to the
// host of baseURL.
func NewRodDriver(baseURL string) (*RodDriver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webdriver base URL %q: %v", baseURL, err)
	}
	return &RodDriver{cookieDomain: u.Hostname()}, nil
}

func (d *RodDriver) NewSession(ctx context.Context) (Session, error) {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, mapDriverErr(err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, mapDriverErr(err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, mapDriverErr(err)
	}

	return &rodSession{browser: browser, page: page, cookieDomain: d.cookieDomain}, nil
}

type rodSession struct {
	browser      *rod.Browser
	page         *rod.Page
	cookieDomain string
}

func (s *rodSession) Navigate(pageURL string) error {
	if err := s.page.Navigate(pageURL); err != nil {
		return mapDriverErr(err)
	}
	return mapDriverErr(s.page.WaitLoad())
}

func (s *rodSession) SetViewport(width, height int) error {
	return mapDriverErr(s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}))
}

func (s *rodSession) ElementByID(id string) (Element, error) {
	return s.element("#" + id)
}

func (s *rodSession) ElementByClass(class string) (Element, error) {
	return s.element("." + class)
}

func (s *rodSession) element(selector string) (Element, error) {
	el, err := s.page.Timeout(elementWait).Element(selector)
	if err != nil {
		return nil, mapDriverErr(err)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) HasElementByID(id string) (bool, error) {
	has, _, err := s.page.Has("#" + id)
	if err != nil {
		return false, mapDriverErr(err)
	}
	return has, nil
}

func (s *rodSession) Screenshot() ([]byte, error) {
	shot, err := s.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, mapDriverErr(err)
	}
	return shot, nil
}

func (s *rodSession) AddCookie(name, value string) error {
	return mapDriverErr(s.browser.SetCookies([]*proto.NetworkCookieParam{{
		Name:   name,
		Value:  value,
		Domain: s.cookieDomain,
		Path:   "/",
	}}))
}

func (s *rodSession) Close() error {
	return s.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Screenshot() ([]byte, error) {
	shot, err := e.el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		if strings.Contains(err.Error(), "not supported") {
			return nil, fmt.Errorf("%w: %v", ErrElementShotUnsupported, err)
		}
		return nil, mapDriverErr(err)
	}
	return shot, nil
}

// mapDriverErr classifies transport-level disconnects so the engine can
// retry them. Everything else passes through untouched.
func mapDriverErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close") {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return err
}
