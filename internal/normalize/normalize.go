// Package normalize turns the heterogeneous raw records delivered by the mail
// gateway into canonical Email values. Everything here is pure: malformed
// input is resolved through explicit per-field fallback chains, never raised
// as an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nandhan/webmail/internal/models"
)

// RawEmail is one record as the gateway delivers it. Identity, body, read
// flag and date each have several possible source fields; the priority order
// lives in Normalize.
type RawEmail struct {
	MongoID      FlexString      `json:"_id"`
	UID          FlexString      `json:"uid"`
	ID           FlexString      `json:"id"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Subject      string          `json:"subject"`
	BodyPreview  string          `json:"bodyPreview"`
	Body         string          `json:"body"`
	TextBody     string          `json:"textBody"`
	HTMLBody     string          `json:"htmlBody"`
	Folder       string          `json:"folder"`
	IsRead       *FlexBool       `json:"isRead"`
	Seen         *FlexBool       `json:"seen"`
	Starred      FlexBool        `json:"starred"`
	ReceivedDate string          `json:"receivedDate"`
	Date         string          `json:"date"`
	Attachments  []RawAttachment `json:"attachments"`
}

// RawAttachment accepts either a bare filename string or an object carrying a
// filename field.
type RawAttachment struct {
	Filename string
}

func (a *RawAttachment) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Filename = name
		return nil
	}

	var obj struct {
		Filename string `json:"filename"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Filename != "" {
			a.Filename = obj.Filename
		} else {
			a.Filename = obj.Name
		}
		return nil
	}

	// Unrecognized shape: drop the attachment name rather than fail the batch.
	a.Filename = ""
	return nil
}

// FlexString decodes a JSON string or number into a string. Anything else
// decodes to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = FlexString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = FlexString(num.String())
		return nil
	}

	*s = ""
	return nil
}

// FlexBool decodes boolean-ish JSON: true/false, "true"/"false", "1"/"0",
// or a number (non-zero is true). Anything else decodes to false.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*b = str == "true" || str == "1" || str == "yes"
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*b = num != 0
		return nil
	}

	*b = false
	return nil
}

// DecodeBatch decodes a raw fetch payload into records. Accepted shapes are
// a bare array and an {"emails": [...]} envelope; anything else (including
// invalid JSON) decodes to an empty batch, because the gateway's response
// envelope is not guaranteed.
func DecodeBatch(data []byte) []RawEmail {
	var envelope struct {
		Emails []RawEmail `json:"emails"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Emails != nil {
		return envelope.Emails
	}

	var bare []RawEmail
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare
	}

	return nil
}

// Normalize produces exactly one canonical Email from a raw record and its
// positional index within the fetched batch. now is the normalization
// timestamp used when the record carries no date of its own.
func Normalize(raw RawEmail, index int, now time.Time) models.Email {
	uid := deriveUID(raw, index)

	folder := models.FolderInbox
	if f, ok := models.ParseFolder(raw.Folder); ok {
		folder = f
	}

	from := raw.From
	if from == "" {
		from = "Unknown"
	}

	subject := raw.Subject
	if subject == "" {
		subject = "(No subject)"
	}

	attachments := make([]string, 0, len(raw.Attachments))
	for _, a := range raw.Attachments {
		if a.Filename != "" {
			attachments = append(attachments, a.Filename)
		}
	}

	return models.Email{
		UID:           uid,
		From:          from,
		SenderEmail:   raw.From,
		To:            raw.To,
		Subject:       subject,
		Body:          firstNonEmpty(raw.BodyPreview, raw.Body, raw.TextBody),
		HTMLBody:      raw.HTMLBody,
		Folder:        folder,
		IsRead:        readFlag(raw),
		ServerStarred: bool(raw.Starred),
		ReceivedDate:  parseDate(firstNonEmpty(raw.ReceivedDate, raw.Date), now),
		Attachments:   attachments,
	}
}

// NormalizeBatch decodes and normalizes a whole fetch payload.
func NormalizeBatch(data []byte, now time.Time) []models.Email {
	raws := DecodeBatch(data)
	emails := make([]models.Email, 0, len(raws))
	for i, raw := range raws {
		emails = append(emails, Normalize(raw, i, now))
	}
	return emails
}

// deriveUID picks the stable identifier: _id, then uid, then id. Records with
// no server identity at all fall back to a composite of the raw date and the
// batch position. The composite is not stable across fetches if ordering or
// date granularity changes; that is a known gap, left visible rather than
// papered over with dedup logic.
func deriveUID(raw RawEmail, index int) string {
	for _, candidate := range []string{string(raw.MongoID), string(raw.UID), string(raw.ID)} {
		if candidate != "" {
			return candidate
		}
	}
	return fmt.Sprintf("mail-%s-%d", firstNonEmpty(raw.ReceivedDate, raw.Date), index)
}

// readFlag resolves the read state: isRead, then seen, then true. A message
// is only unread when the server explicitly marks it unseen.
func readFlag(raw RawEmail) bool {
	if raw.IsRead != nil {
		return bool(*raw.IsRead)
	}
	if raw.Seen != nil {
		return bool(*raw.Seen)
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseDate(value string, fallback time.Time) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
