package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/logward/logward/internal/detection/model"
)

// HTTPWebhook posts the notification payload as JSON. Retry policy is the
// receiver's concern; a non-2xx status is reported as a DeliveryFault string.
type HTTPWebhook struct {
	client *http.Client
}

func NewHTTPWebhook(timeout time.Duration) *HTTPWebhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebhook{client: &http.Client{Timeout: timeout}}
}

func (w *HTTPWebhook) Send(ctx context.Context, url string, job model.NotificationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
