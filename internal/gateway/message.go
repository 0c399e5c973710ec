package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jhillyerd/enmime"
)

// MessageDetail is the full content of a single message, fetched on demand
// when the list payload only carried a preview.
type MessageDetail struct {
	UID         string   `json:"uid"`
	Subject     string   `json:"subject"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	TextBody    string   `json:"text_body"`
	HTMLBody    string   `json:"html_body"`
	Attachments []string `json:"attachments"`
}

// FetchMessage fetches one message by uid. The endpoint either returns the
// raw RFC 822 source (preferred, parsed here) or an already-parsed record.
func (c *Client) FetchMessage(ctx context.Context, uid string) (*MessageDetail, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/mail/email/"+uid, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Raw      string `json:"raw"`
		Source   string `json:"source"`
		Subject  string `json:"subject"`
		From     string `json:"from"`
		To       string `json:"to"`
		Body     string `json:"body"`
		HTMLBody string `json:"htmlBody"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", uid, err)
	}

	source := payload.Raw
	if source == "" {
		source = payload.Source
	}
	if source != "" {
		return parseMessageSource(uid, source)
	}

	return &MessageDetail{
		UID:      uid,
		Subject:  payload.Subject,
		From:     payload.From,
		To:       payload.To,
		TextBody: payload.Body,
		HTMLBody: payload.HTMLBody,
	}, nil
}

// parseMessageSource parses raw RFC 822 source into a MessageDetail.
// Attachment content is discarded; only filenames are kept.
func parseMessageSource(uid, source string) (*MessageDetail, error) {
	envelope, err := enmime.ReadEnvelope(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", uid, err)
	}

	attachments := make([]string, 0, len(envelope.Attachments))
	for _, att := range envelope.Attachments {
		if att.FileName != "" {
			attachments = append(attachments, att.FileName)
		}
	}

	return &MessageDetail{
		UID:         uid,
		Subject:     envelope.GetHeader("Subject"),
		From:        envelope.GetHeader("From"),
		To:          envelope.GetHeader("To"),
		TextBody:    envelope.Text,
		HTMLBody:    envelope.HTML,
		Attachments: attachments,
	}, nil
}
