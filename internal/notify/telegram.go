package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/internal/refresh"
	"github.com/openquant/screener/pkg/httputil"
	"github.com/openquant/screener/pkg/logger"
)

// Telegram posts a refresh report to a chat via the Bot API.
// Implements refresh.Notifier.
type Telegram struct {
	http    *httputil.Client
	baseURL string
	token   string
	chatID  string
	log     *logger.Logger
}

func NewTelegram(token, chatID string, log *logger.Logger) *Telegram {
	return &Telegram{
		http:    httputil.New(log).WithTimeout(15 * time.Second),
		baseURL: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		log:     log,
	}
}

// WithBaseURL overrides the Bot API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimSuffix(u, "/")
	return t
}

// RefreshFinished sends a terminal-state report. Failures here are
// logged by the caller and never affect the refresh outcome.
func (t *Telegram) RefreshFinished(ctx context.Context, snap refresh.Snapshot, top []contracts.CombinedScore) error {
	return t.sendMessage(ctx, buildReport(snap, top))
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned %d", resp.StatusCode)
	}
	return nil
}

func buildReport(snap refresh.Snapshot, top []contracts.CombinedScore) string {
	var b strings.Builder

	switch snap.State {
	case refresh.StateCompleted:
		b.WriteString("*Screen refresh completed*\n")
	case refresh.StateFailed:
		b.WriteString("*Screen refresh failed*\n")
		if snap.LastError != "" {
			fmt.Fprintf(&b, "Error: %s\n", snap.LastError)
		}
	default:
		fmt.Fprintf(&b, "*Screen refresh: %s*\n", snap.State)
	}

	p := snap.Progress
	fmt.Fprintf(&b, "Symbols: %d, fetched: %d, processed: %d", p.Total, p.Fetched, p.Processed)
	if len(p.Skipped) > 0 {
		fmt.Fprintf(&b, ", skipped: %d", len(p.Skipped))
	}
	b.WriteString("\n")

	if len(top) > 0 {
		b.WriteString("\n*Top oversold quality picks*\n")
		for _, cs := range top {
			fmt.Fprintf(&b, "%d. %s  %.1f (tech %.0f / fund %.0f, quality %d/10)\n",
				cs.Rank, cs.Symbol, cs.Combined, cs.Technical, cs.Fundamental, cs.QualityScore)
		}
	}
	return b.String()
}
