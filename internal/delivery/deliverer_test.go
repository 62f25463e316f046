package delivery

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/dashmail/internal/models"
	"github.com/dashmail/internal/report"
)

type fakeSender struct {
	sent     []*gomail.Message
	failFor  map[string]error // keyed by "To" header value
}

func (f *fakeSender) DialAndSend(msgs ...*gomail.Message) error {
	for _, m := range msgs {
		f.sent = append(f.sent, m)
		to := strings.Join(m.GetHeader("To"), ",")
		if err, ok := f.failFor[to]; ok {
			return err
		}
	}
	return nil
}

func newTestDeliverer(sender MailSender) *Deliverer {
	return &Deliverer{sender: sender, from: "reports@x.com", bcc: "audit@x.com"}
}

func header(m *gomail.Message, field string) []string {
	return m.GetHeader(field)
}

func TestDeliverAsGroup(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDeliverer(sender)

	schedule := &models.EmailSchedule{Recipients: "team@x.com", DeliverAsGroup: true}
	err := d.Deliver(context.Background(), schedule, "Weekly", &report.EmailContent{Body: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(sender.sent))
	}
	if got := header(sender.sent[0], "To"); !reflect.DeepEqual(got, []string{"team@x.com"}) {
		t.Errorf("to = %v", got)
	}
	if got := header(sender.sent[0], "Bcc"); !reflect.DeepEqual(got, []string{"audit@x.com"}) {
		t.Errorf("bcc = %v", got)
	}
}

func TestDeliverIndividually(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDeliverer(sender)

	schedule := &models.EmailSchedule{Recipients: "a@x.com,b@x.com"}
	err := d.Deliver(context.Background(), schedule, "Weekly", &report.EmailContent{Body: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected two independent sends, got %d", len(sender.sent))
	}
	for i, want := range []string{"a@x.com", "b@x.com"} {
		if got := header(sender.sent[i], "To"); !reflect.DeepEqual(got, []string{want}) {
			t.Errorf("send %d to = %v, want %s", i, got, want)
		}
		if got := header(sender.sent[i], "Bcc"); !reflect.DeepEqual(got, []string{"audit@x.com"}) {
			t.Errorf("send %d bcc = %v", i, got)
		}
	}
}

func TestDeliverContinuesPastFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{"a@x.com": errors.New("mailbox full")}}
	d := newTestDeliverer(sender)

	schedule := &models.EmailSchedule{Recipients: "a@x.com, b@x.com"}
	err := d.Deliver(context.Background(), schedule, "Weekly", &report.EmailContent{Body: "x"})
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	if len(sender.sent) != 2 {
		t.Fatalf("failure of one recipient stopped the rest: %d sends", len(sender.sent))
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("error does not summarize failures: %v", err)
	}
}

func TestDeliverNoRecipients(t *testing.T) {
	d := newTestDeliverer(&fakeSender{})
	err := d.Deliver(context.Background(), &models.EmailSchedule{Recipients: "  "}, "s", &report.EmailContent{})
	if err == nil {
		t.Fatal("expected error for empty recipient specification")
	}
}

func TestSplitAddressList(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"a@x.com,b@x.com", []string{"a@x.com", "b@x.com"}},
		{"a@x.com; b@x.com", []string{"a@x.com", "b@x.com"}},
		{" a@x.com  b@x.com ", []string{"a@x.com", "b@x.com"}},
	}
	for _, tc := range cases {
		if got := SplitAddressList(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitAddressList(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
	if got := SplitAddressList(""); len(got) != 0 {
		t.Errorf("SplitAddressList(%q) = %v, want empty", "", got)
	}
}
