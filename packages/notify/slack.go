package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *http.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// WithSlackHTTPClient sets the HTTP client used to post messages
func WithSlackHTTPClient(client *http.Client) SlackOption {
	return func(s *SlackNotifier) {
		s.client = client
	}
}

// WithSlackIconEmoji sets the Slack bot icon emoji
func WithSlackIconEmoji(emoji string) SlackOption {
	return func(s *SlackNotifier) {
		s.iconEmoji = emoji
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "hitreport",
		iconEmoji:  ":test_tube:",
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the name of the notifier
func (s *SlackNotifier) Name() string {
	return "slack"
}

// slackTextLimit is the longest text Slack accepts in a section block
const slackTextLimit = 3000

type slackMessage struct {
	Channel   string       `json:"channel,omitempty"`
	Username  string       `json:"username,omitempty"`
	IconEmoji string       `json:"icon_emoji,omitempty"`
	Text      string       `json:"text"` // notification fallback
	Blocks    []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(format string, args ...any) slackText {
	text := fmt.Sprintf(format, args...)
	if len(text) > slackTextLimit {
		text = text[:slackTextLimit-3] + "..."
	}
	return slackText{Type: "mrkdwn", Text: text}
}

// title describes the outcome of the run in one line
func (s *SlackNotifier) title(summary *RunSummary) string {
	var title string
	switch {
	case summary.FailedTests > 0:
		title = fmt.Sprintf(":x: %d test(s) failed", summary.FailedTests)
	case summary.Unfinished > 0:
		title = fmt.Sprintf(":x: %d test(s) did not finish", summary.Unfinished)
	case summary.IsRecovery:
		title = ":tada: Tests recovered"
	default:
		title = ":white_check_mark: All tests passed"
	}
	if summary.Name != "" {
		title = summary.Name + ": " + title
	}
	return title
}

// Notify posts the run summary as Block Kit sections, one per failed test
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	title := s.title(summary)

	fields := []slackText{
		mrkdwn("*Passed*\n%d/%d", summary.PassedTests, summary.TotalTests),
		mrkdwn("*Failed*\n%d", summary.FailedTests),
		mrkdwn("*Skipped*\n%d", summary.SkippedTests),
		mrkdwn("*Duration*\n%s", summary.Duration.Round(time.Millisecond)),
	}
	if summary.Environment != "" {
		fields = append(fields, mrkdwn("*Environment*\n%s", summary.Environment))
	}

	blocks := []slackBlock{
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + title + "*"}},
		{Type: "section", Fields: fields},
	}
	for _, ft := range summary.FailedResults {
		var text strings.Builder
		fmt.Fprintf(&text, "`%s`", ft.Name)
		for _, err := range ft.Errors {
			fmt.Fprintf(&text, "\n> %s", err)
		}
		for _, ev := range ft.Evidence {
			fmt.Fprintf(&text, "\n:camera: %s", ev)
		}
		t := mrkdwn("%s", text.String())
		blocks = append(blocks, slackBlock{Type: "section", Text: &t})
	}
	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{mrkdwn("hitreport | %s", time.Now().Format(time.RFC1123))},
	})

	return s.send(ctx, slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Text:      title,
		Blocks:    blocks,
	})
}

func (s *SlackNotifier) send(ctx context.Context, msg slackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
