package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/dashmail/internal/capture"
	"github.com/dashmail/internal/models"
)

// ErrUnsupportedFormat means the schedule's delivery configuration names a
// combination this service does not know how to render. It is raised before
// any network call.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// EmailContent is a fully prepared email payload. Exactly one of Data and
// Images is populated, except for tabular inline bodies which embed the
// table directly as HTML.
type EmailContent struct {
	Body   string            // HTML body
	Data   map[string][]byte // attachments: filename -> bytes
	Images map[string][]byte // inline images: content-id -> bytes
}

const sliceTableTemplate = `<b><a href="{{.Link}}">{{.Name}}</a></b><br/>
<table border="1" cellpadding="4" cellspacing="0">
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
`

// Formatter converts captured artifacts into email payloads. It is a pure
// transformation: nothing here touches the network.
type Formatter struct {
	fromDomain string
	tableTmpl  *template.Template
}

// NewFormatter derives the inline content-id domain from the configured
// "From" address.
func NewFormatter(fromAddress string) (*Formatter, error) {
	addr, err := mail.ParseAddress(fromAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %v", fromAddress, err)
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 {
		return nil, fmt.Errorf("from address %q has no domain", fromAddress)
	}

	return &Formatter{
		fromDomain: addr.Address[at+1:],
		tableTmpl:  template.Must(template.New("slice_table").Parse(sliceTableTemplate)),
	}, nil
}

// FormatScreenshot builds the email for a captured screenshot.
func (f *Formatter) FormatScreenshot(delivery models.EmailDeliveryType, screenshot []byte, title, link string) (*EmailContent, error) {
	switch delivery {
	case models.DeliveryAttachment:
		return &EmailContent{
			Body: fmt.Sprintf(`<b><a href="%s">%s</a></b><p></p>`,
				html.EscapeString(link), html.EscapeString(title)),
			Data: map[string][]byte{"screenshot.jpg": screenshot},
		}, nil
	case models.DeliveryInline:
		msgid := f.newContentID()
		return &EmailContent{
			Body: fmt.Sprintf(`<b><a href="%s">%s</a></b><p></p><img src="cid:%s">`,
				html.EscapeString(link), html.EscapeString(title), msgid),
			Images: map[string][]byte{msgid: screenshot},
		}, nil
	default:
		return nil, fmt.Errorf("%w: delivery type %q", ErrUnsupportedFormat, delivery)
	}
}

// FormatSliceData builds the email for a tabular export.
func (f *Formatter) FormatSliceData(delivery models.EmailDeliveryType, data *capture.SliceData, name, link string) (*EmailContent, error) {
	switch delivery {
	case models.DeliveryAttachment:
		return &EmailContent{
			Body: fmt.Sprintf(`<b><a href="%s">%s</a></b><br/>`,
				html.EscapeString(link), html.EscapeString(name)),
			Data: map[string][]byte{name + ".csv": data.Raw},
		}, nil
	case models.DeliveryInline:
		var buf bytes.Buffer
		err := f.tableTmpl.Execute(&buf, struct {
			Name    string
			Link    string
			Columns []string
			Rows    [][]string
		}{Name: name, Link: link, Columns: data.Columns, Rows: data.Rows})
		if err != nil {
			return nil, fmt.Errorf("failed to render data table: %v", err)
		}
		return &EmailContent{Body: buf.String()}, nil
	default:
		return nil, fmt.Errorf("%w: delivery type %q", ErrUnsupportedFormat, delivery)
	}
}

// newContentID mints a unique message id scoped to the sender domain, the
// shape SMTP clients expect for cid references.
func (f *Formatter) newContentID() string {
	return uuid.NewString() + "@" + f.fromDomain
}
