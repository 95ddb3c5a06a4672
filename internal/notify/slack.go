package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/junglehq/jungle/pkg/logging"
)

// SlackNotifier posts alert messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	logger     *logging.Logger
}

// NewSlackNotifier creates a Slack webhook notifier. Returns nil when no
// webhook URL is configured, which callers treat as Slack disabled.
func NewSlackNotifier(webhookURL string, logger *logging.Logger) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlackNotifier{webhookURL: webhookURL, logger: logger}
}

// PostAlert sends a Block Kit message describing a pipeline failure.
func (s *SlackNotifier) PostAlert(ctx context.Context, title string, fields map[string]string) error {
	headerText := slack.NewTextBlockObject(slack.PlainTextType, title, true, false)

	var fieldObjects []*slack.TextBlockObject
	for _, key := range []string{"Organization", "Lead", "Reason"} {
		if val, ok := fields[key]; ok && val != "" {
			fieldObjects = append(fieldObjects, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s:*\n%s", key, val), false, false))
		}
	}

	blocks := []slack.Block{slack.NewHeaderBlock(headerText)}
	if len(fieldObjects) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fieldObjects, nil))
	}

	msg := &slack.WebhookMessage{
		Text:   title,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		s.logger.Error("slack webhook post failed", "error", err)
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	return nil
}
