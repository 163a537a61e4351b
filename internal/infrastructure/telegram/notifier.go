package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// maxListed caps how many slugs a message lists per outcome.
const maxListed = 10

// Notifier sends batch reports to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.ReportNotifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	if base != "" {
		n.apiBase = strings.TrimRight(base, "/")
	}
	return n
}

// PublishReport posts a Markdown summary of the batch to Telegram.
func (n *Notifier) PublishReport(ctx context.Context, report domain.BatchReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatReport(report))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatReport renders the message text for a batch report.
func FormatReport(report domain.BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Enrichment batch* `%s`\n", report.RunID)
	fmt.Fprintf(&b, "enriched %d, skipped %d, rejected %d, failed %d\n",
		len(report.Enriched), len(report.Skipped), len(report.Rejected), len(report.Failed))

	if len(report.Enriched) > 0 {
		b.WriteString("\n*Enriched*\n")
		writeList(&b, report.Enriched)
	}
	if len(report.Failed) > 0 {
		b.WriteString("\n*Failed*\n")
		lines := make([]string, len(report.Failed))
		for i, f := range report.Failed {
			lines[i] = fmt.Sprintf("%s (%s)", f.Slug, f.Stage)
		}
		writeList(&b, lines)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, items []string) {
	for i, item := range items {
		if i == maxListed {
			fmt.Fprintf(b, "- and %d more\n", len(items)-maxListed)
			return
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
}
