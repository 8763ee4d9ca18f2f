// Package notify fans trigger and match jobs out to the configured channels
// and records the outcome on the alert history entry.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/service/metrics"
)

// EmailSender delivers one notification to a recipient list.
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// WebhookSender posts one notification payload to a URL.
type WebhookSender interface {
	Send(ctx context.Context, url string, job model.NotificationJob) error
}

// HistoryMarker records the notification outcome on the history entry.
type HistoryMarker interface {
	MarkAsNotified(ctx context.Context, historyID string, errMsg *string) error
}

// Dispatcher tries every applicable channel per job. A failure in one channel
// never suppresses the other; failures are collected per channel, joined, and
// written back through MarkAsNotified. Jobs without a history id (Sigma
// matches) skip the write-back.
type Dispatcher struct {
	email   EmailSender
	webhook WebhookSender
	history HistoryMarker
}

func NewDispatcher(email EmailSender, webhook WebhookSender, history HistoryMarker) *Dispatcher {
	return &Dispatcher{email: email, webhook: webhook, history: history}
}

func (d *Dispatcher) Dispatch(ctx context.Context, jobs []model.NotificationJob) {
	for _, job := range jobs {
		d.dispatchOne(ctx, job)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, job model.NotificationJob) {
	var failures []string

	if d.email != nil && len(job.EmailRecipients) > 0 {
		subject := fmt.Sprintf("Alert: %s", job.RuleName)
		body := fmt.Sprintf("Rule %q matched %d log(s) (threshold %d within %d minute(s)).",
			job.RuleName, job.LogCount, job.Threshold, job.TimeWindow)
		if err := d.email.Send(ctx, job.EmailRecipients, subject, body); err != nil {
			metrics.NotificationFailures.WithLabelValues("email").Inc()
			log.Error().Err(err).Str("rule", job.RuleID).Msg("email notification failed")
			failures = append(failures, "email: "+err.Error())
		}
	}
	if d.webhook != nil && job.WebhookURL != "" {
		if err := d.webhook.Send(ctx, job.WebhookURL, job); err != nil {
			metrics.NotificationFailures.WithLabelValues("webhook").Inc()
			log.Error().Err(err).Str("rule", job.RuleID).Msg("webhook notification failed")
			failures = append(failures, "webhook: "+err.Error())
		}
	}

	if job.HistoryID == nil || d.history == nil {
		return
	}
	var errMsg *string
	if len(failures) > 0 {
		joined := strings.Join(failures, "; ")
		errMsg = &joined
	}
	// notified is set even on failure so the entry is never retried blindly;
	// the error column keeps the failure visible to operators
	if err := d.history.MarkAsNotified(ctx, *job.HistoryID, errMsg); err != nil {
		log.Error().Err(err).Str("history", *job.HistoryID).Msg("mark notified failed")
	}
}
