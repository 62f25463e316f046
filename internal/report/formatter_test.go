package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/dashmail/internal/capture"
	"github.com/dashmail/internal/models"
)

func newTestFormatter(t *testing.T) *Formatter {
	t.Helper()
	f, err := NewFormatter("Reports <reports@x.com>")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	return f
}

func TestFormatScreenshotAttachment(t *testing.T) {
	f := newTestFormatter(t)

	content, err := f.FormatScreenshot(models.DeliveryAttachment, []byte("png"), "Sales", "http://x.com/dashboard/sales/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Images) != 0 {
		t.Errorf("attachment delivery produced inline images: %v", content.Images)
	}
	if string(content.Data["screenshot.jpg"]) != "png" {
		t.Errorf("screenshot not attached: %v", content.Data)
	}
	if !strings.Contains(content.Body, "http://x.com/dashboard/sales/") {
		t.Errorf("body missing target link: %s", content.Body)
	}
}

func TestFormatScreenshotInline(t *testing.T) {
	f := newTestFormatter(t)

	content, err := f.FormatScreenshot(models.DeliveryInline, []byte("png"), "Sales", "http://x.com/dashboard/sales/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Data) != 0 {
		t.Errorf("inline delivery produced attachments: %v", content.Data)
	}
	if len(content.Images) != 1 {
		t.Fatalf("expected one inline image, got %v", content.Images)
	}
	for cid := range content.Images {
		if !strings.HasSuffix(cid, "@x.com") {
			t.Errorf("content id %q not scoped to sender domain", cid)
		}
		if !strings.Contains(content.Body, "cid:"+cid) {
			t.Errorf("body does not reference content id %q: %s", cid, content.Body)
		}
	}
}

func TestFormatScreenshotContentIDsUnique(t *testing.T) {
	f := newTestFormatter(t)

	first, _ := f.FormatScreenshot(models.DeliveryInline, []byte("a"), "A", "http://x.com/a")
	second, _ := f.FormatScreenshot(models.DeliveryInline, []byte("b"), "B", "http://x.com/b")
	for cid := range first.Images {
		if _, clash := second.Images[cid]; clash {
			t.Errorf("content id %q reused across emails", cid)
		}
	}
}

func TestFormatSliceDataAttachment(t *testing.T) {
	f := newTestFormatter(t)
	data := &capture.SliceData{
		Columns: []string{"region", "total"},
		Rows:    [][]string{{"east", "12"}},
		Raw:     []byte("region,total\neast,12\n"),
	}

	content, err := f.FormatSliceData(models.DeliveryAttachment, data, "weekly totals", "http://x.com/slice/7/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content.Data["weekly totals.csv"]) != "region,total\neast,12\n" {
		t.Errorf("raw export not attached under derived name: %v", content.Data)
	}
	if len(content.Images) != 0 {
		t.Error("tabular attachment produced inline images")
	}
}

func TestFormatSliceDataInlineTable(t *testing.T) {
	f := newTestFormatter(t)
	data := &capture.SliceData{
		Columns: []string{"region", "total"},
		Rows:    [][]string{{"east", "12"}, {"west", "34"}},
	}

	content, err := f.FormatSliceData(models.DeliveryInline, data, "weekly totals", "http://x.com/slice/7/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.Data) != 0 || len(content.Images) != 0 {
		t.Error("tabular inline body must embed data directly, no mappings")
	}
	for _, want := range []string{"<th>region</th>", "<td>west</td>", "<td>34</td>"} {
		if !strings.Contains(content.Body, want) {
			t.Errorf("table body missing %s:\n%s", want, content.Body)
		}
	}
}

func TestFormatUnsupportedDeliveryType(t *testing.T) {
	f := newTestFormatter(t)

	if _, err := f.FormatScreenshot("Carrier pigeon", []byte("png"), "t", "u"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("screenshot: expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := f.FormatSliceData("", &capture.SliceData{}, "t", "u"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("slice data: expected ErrUnsupportedFormat, got %v", err)
	}
}
