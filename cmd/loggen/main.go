// loggen posts batches of synthetic log records to a running logward server,
// for exercising detection rules and alert thresholds locally.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	target   = flag.String("target", "http://localhost:8080", "logward server base URL")
	org      = flag.String("org", "demo-org", "organization id")
	project  = flag.String("project", "", "project id, empty for org-wide")
	token    = flag.String("token", "", "bearer token, empty when auth is disabled")
	service  = flag.String("service", "payments", "service name stamped on every record")
	batch    = flag.Int("batch", 20, "records per batch")
	interval = flag.Duration("interval", 2*time.Second, "delay between batches, 0 for a single batch")
	errRate  = flag.Float64("error-rate", 0.3, "fraction of records at error level")
)

var messages = []string{
	"request completed",
	"cache refreshed",
	"Failed password for root from 10.0.0.%d",
	"connection timed out after 30s",
	"payment settled",
}

func main() {
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	for {
		if err := postBatch(client); err != nil {
			log.Error().Err(err).Msg("batch failed")
		}
		if *interval <= 0 {
			return
		}
		time.Sleep(*interval)
	}
}

func postBatch(client *http.Client) error {
	logs := make([]map[string]any, 0, *batch)
	for i := 0; i < *batch; i++ {
		level := "info"
		if rand.Float64() < *errRate {
			level = "error"
		}
		msg := messages[rand.Intn(len(messages))]
		if bytes.Contains([]byte(msg), []byte("%d")) {
			msg = fmt.Sprintf(msg, rand.Intn(255))
		}
		logs = append(logs, map[string]any{
			"service": *service,
			"level":   level,
			"message": msg,
			"time":    time.Now().UTC().Format(time.RFC3339Nano),
			"product": "linux",
		})
	}

	payload := map[string]any{"organizationId": *org, "logs": logs}
	if *project != "" {
		payload["projectId"] = *project
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, *target+"/v1/logs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	log.Info().Int("records", len(logs)).Msg("batch accepted")
	return nil
}
