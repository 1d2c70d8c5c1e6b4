package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shipconf/internal/config"
)

const userAgent = "shipconf/1.0"

// maxListedFiles caps how many problem documents a message names.
const maxListedFiles = 10

// RunReport summarizes a finished batch for operators.
type RunReport struct {
	RunID        string
	Succeeded    int
	Failed       int
	Duration     time.Duration
	Err          error
	ProblemFiles []string
}

// Service defines the notification surface used by the importer and CLI.
type Service interface {
	NotifyRunFinished(ctx context.Context, report RunReport) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onlyFailures: cfg.Notifications.OnlyFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onlyFailures bool
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, report RunReport) error {
	clean := report.Err == nil && report.Failed == 0
	if clean && n.onlyFailures {
		return nil
	}
	return n.send(ctx, formatRunReport(report))
}

func formatRunReport(report RunReport) payload {
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d imported, %d moved to the problem folder in %s", report.Succeeded, report.Failed, duration)
	if len(report.ProblemFiles) > 0 {
		b.WriteString("\nProblem files:")
		for i, name := range report.ProblemFiles {
			if i == maxListedFiles {
				fmt.Fprintf(&b, "\n  … and %d more", len(report.ProblemFiles)-maxListedFiles)
				break
			}
			b.WriteString("\n  ")
			b.WriteString(name)
		}
	}
	if report.Err != nil {
		b.WriteString("\nRun error: ")
		b.WriteString(strings.TrimSpace(report.Err.Error()))
	}
	if report.RunID != "" {
		b.WriteString("\nRun: ")
		b.WriteString(report.RunID)
	}

	switch {
	case report.Err != nil:
		return payload{
			title:    "shipconf - Run Failed",
			message:  b.String(),
			tags:     []string{"shipconf", "run", "error"},
			priority: "high",
		}
	case report.Failed > 0:
		return payload{
			title:   "shipconf - Documents Need Attention",
			message: b.String(),
			tags:    []string{"shipconf", "run", "warning"},
		}
	default:
		return payload{
			title:   "shipconf - Run Complete",
			message: b.String(),
			tags:    []string{"shipconf", "run", "completed"},
		}
	}
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "shipconf - Test",
		message:  "Notification system test",
		tags:     []string{"shipconf", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunFinished(context.Context, RunReport) error { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
