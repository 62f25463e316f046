package delivery

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/report"
)

// MailSender is the transport contract; *gomail.Dialer satisfies it.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Bcc        string
	RatePerSec int // max sends per second, 0 disables pacing
}

// Deliverer expands a schedule's recipient configuration into individual
// sends and dispatches them over SMTP. Each send is independent: one
// failing recipient does not stop the others.
type Deliverer struct {
	sender  MailSender
	from    string
	bcc     string
	limiter *rate.Limiter
}

func New(cfg Config) *Deliverer {
	d := &Deliverer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		bcc:    cfg.Bcc,
	}
	if cfg.RatePerSec > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return d
}

// Deliver sends the content to every logical recipient of the schedule.
func (d *Deliverer) Deliver(ctx context.Context, schedule *models.EmailSchedule, subject string, content *report.EmailContent) error {
	recipients := d.recipients(schedule)
	if len(recipients) == 0 {
		return fmt.Errorf("schedule %d has no recipients", schedule.ID)
	}

	var failed int
	var firstErr error
	for _, to := range recipients {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := d.sender.DialAndSend(d.message(to, subject, content)); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			log.Errorf("failed to send report to %s: %v", to, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sends failed: %v", failed, len(recipients), firstErr)
	}
	return nil
}

// recipients expands the schedule's recipient specification. A group
// delivery treats the whole specification as a single "to" target.
func (d *Deliverer) recipients(schedule *models.EmailSchedule) []string {
	if schedule.DeliverAsGroup {
		if to := strings.TrimSpace(schedule.Recipients); to != "" {
			return []string{to}
		}
		return nil
	}
	return SplitAddressList(schedule.Recipients)
}

func (d *Deliverer) message(to, subject string, content *report.EmailContent) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	if d.bcc != "" {
		m.SetHeader("Bcc", d.bcc)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content.Body)

	for name, data := range content.Data {
		data := data
		m.Attach(name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	for cid, img := range content.Images {
		img := img
		m.Embed(cid, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(img)
			return err
		}))
	}
	return m
}

// SplitAddressList parses a delimited recipient list, accepting commas,
// semicolons and whitespace as separators.
func SplitAddressList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}
