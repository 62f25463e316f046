package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/dashmail/internal/models"
)

// SlackNotifier posts report delivery failures to a Slack incoming webhook.
// A notifier with an empty webhook URL is a no-op, so Slack stays optional.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
}

func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		username:   "dashmail",
	}
}

// NotifyFailure sends one message per failed delivery. Notification is best
// effort: a webhook error is logged, never returned, so a Slack outage cannot
// turn a delivered-but-unreported run into a failed one.
func (s *SlackNotifier) NotifyFailure(reportType models.ScheduleType, scheduleID uint, deliveryErr error) {
	if s.webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: ":red_circle:",
		Attachments: []slack.Attachment{
			{
				Color: "#FF0000",
				Title: fmt.Sprintf("Email report delivery failed: %s schedule %d", reportType, scheduleID),
				Text:  deliveryErr.Error(),
				Fields: []slack.AttachmentField{
					{
						Title: "Report type",
						Value: string(reportType),
						Short: true,
					},
					{
						Title: "Schedule",
						Value: fmt.Sprintf("%d", scheduleID),
						Short: true,
					},
				},
				Footer: "dashmail",
				Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
			},
		},
	}

	if err := slack.PostWebhook(s.webhookURL, msg); err != nil {
		log.Errorf("failed to send slack notification for %s schedule %d: %v", reportType, scheduleID, err)
	}
}
