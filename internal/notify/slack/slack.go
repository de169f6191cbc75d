// Package slack sends referral notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/umeed-health/umeed/internal/triage"
)

const (
	maxVitalsLen = 1500
	httpTimeout  = 10 * time.Second
)

// Notifier sends referral visits to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a stored visit to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, v *triage.VisitRecord) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(v))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(v *triage.VisitRecord) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(v),
			{"type": "divider"},
			fieldsBlock(v),
			{"type": "divider"},
			vitalsBlock(v),
			{"type": "divider"},
			contextBlock(v),
		},
	}
}

func headerBlock(v *triage.VisitRecord) map[string]any {
	text := fmt.Sprintf("%s %s: member %s", riskEmoji(v.RiskClass), v.RiskClass.Action(), v.MemberID)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(v *triage.VisitRecord) map[string]any {
	override := "no"
	if v.OverrideTriggered {
		override = "yes (danger sign)"
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", v.Category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Risk:* %s", v.RiskLabel),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Priority:* %d", v.PriorityScore),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Override:* %s", override),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*ASHA:* %s", v.AshaID),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Model:* L %.2f / M %.2f / H %.2f", v.ProbLow, v.ProbModerate, v.ProbHigh),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func vitalsBlock(v *triage.VisitRecord) map[string]any {
	text := truncate(formatSection(v.Vitals), maxVitalsLen)
	if text == "" {
		text = "_No vitals recorded._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Vitals*\n\n%s", text),
		},
	}
}

func contextBlock(v *triage.VisitRecord) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("umeed • visit %s • %s", v.ID, v.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

// formatSection renders a vitals map as sorted "key: value" lines.
func formatSection(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(lines, "\n")
}

func riskEmoji(c triage.RiskClass) string {
	switch c {
	case triage.RiskHigh:
		return "\U0001f534" // red circle
	case triage.RiskModerate:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// truncate shortens s to at most limit bytes, cutting on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
