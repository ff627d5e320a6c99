package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

var phoneChars = regexp.MustCompile(`[^0-9+]`)

// SMSSender delivers verification codes via the 2Factor.in SMS API.
type SMSSender struct {
	apiKey   string
	senderID string
	client   *http.Client
}

func NewSMSSender(apiKey, senderID string, timeout time.Duration) *SMSSender {
	if apiKey == "" {
		log.Println("SMS delivery disabled: TWOFACTOR_API_KEY not configured")
	}
	return &SMSSender{
		apiKey:   apiKey,
		senderID: senderID,
		client:   &http.Client{Timeout: timeout},
	}
}

type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

func (s *SMSSender) Send(ctx context.Context, to, code, purpose string) error {
	if s.apiKey == "" {
		log.Printf("Skipping SMS send (delivery disabled) | To=%s", to)
		return nil
	}

	cleanPhone := phoneChars.ReplaceAllString(to, "")

	endpoint := fmt.Sprintf("https://2factor.in/API/V1/%s/SMS/%s/%s/%s",
		url.PathEscape(s.apiKey), url.PathEscape(cleanPhone), url.PathEscape(code), url.PathEscape(s.senderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var result twoFactorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("sms provider returned unreadable response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.Status != "Success" {
		return fmt.Errorf("sms provider rejected send: %s", result.Details)
	}

	log.Printf("%s code sent via SMS | To=%s", formatLabel(purpose), cleanPhone)
	return nil
}
