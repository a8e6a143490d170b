// Package notify delivers operator alerts for unattended pipeline
// failures through the transactional-email provider's HTTP API.
// Notification is fire-and-forget: a delivery failure is logged and must
// never mask the pipeline failure that triggered it.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mediarr/mediarr/internal/models"
)

type Mailer struct {
	apiKey     string
	endpoint   string
	from       string
	recipients []string
	baseURL    string
	httpClient *http.Client
}

// NewMailer builds the alert mailer. baseURL is the application's public
// URL, used to compose the manual-retry link in alert bodies.
func NewMailer(apiKey, endpoint, from string, recipients []string, baseURL string) *Mailer {
	return &Mailer{
		apiKey:     apiKey,
		endpoint:   endpoint,
		from:       from,
		recipients: recipients,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type mailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Notify composes and dispatches a population-failure alert. Missing
// credentials or recipients log and return; errors are never propagated.
func (m *Mailer) Notify(kind models.MediaKind, operation string, cause error) {
	if m.apiKey == "" {
		log.Printf("📭 Notifier: no mail API key configured, skipping alert for %s (%s): %v", kind.Plural(), operation, cause)
		return
	}
	if len(m.recipients) == 0 {
		log.Printf("📭 Notifier: no alert recipients configured, skipping alert for %s (%s)", kind.Plural(), operation)
		return
	}

	subject := fmt.Sprintf("Mediarr population failure: %s", kind.Plural())
	body := fmt.Sprintf(
		"Population of %s failed.\n\nOperation: %s\nError: %v\nTime: %s\n\nRetry manually: %s/admin/populate\n",
		kind.Plural(), operation, cause, time.Now().UTC().Format(time.RFC3339), m.baseURL,
	)

	payload, err := json.Marshal(mailPayload{
		From:    m.from,
		To:      m.recipients,
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		log.Printf("❌ Notifier: failed to encode alert: %v", err)
		return
	}

	req, err := http.NewRequest("POST", m.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Printf("❌ Notifier: failed to create alert request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ Notifier: failed to send alert: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		log.Printf("❌ Notifier: mail provider returned status %d: %s", resp.StatusCode, string(detail))
		return
	}

	log.Printf("📬 Notifier: alert sent to %d recipient(s) for %s (%s)", len(m.recipients), kind.Plural(), operation)
}
