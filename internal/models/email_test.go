package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFolder(t *testing.T) {
	for _, f := range Folders {
		got, ok := ParseFolder(string(f))
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}

	_, ok := ParseFolder("starred")
	assert.False(t, ok, "starred is a projection, not a folder")

	_, ok = ParseFolder("all-mail")
	assert.False(t, ok, "all-mail is a projection, not a folder")
}

func TestReplyDraft(t *testing.T) {
	email := Email{
		From:         "Mira",
		SenderEmail:  "mira@example.com",
		Subject:      "Lunch plan",
		Body:         "Sushi?\nNoon?",
		ReceivedDate: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	draft := ReplyDraft(email)

	assert.Equal(t, "mira@example.com", draft.To)
	assert.Equal(t, "Re: Lunch plan", draft.Subject)
	assert.Contains(t, draft.Body, "On Mar 14, 2026, Mira wrote:")
	assert.Contains(t, draft.Body, "> Sushi?")
	assert.Contains(t, draft.Body, "> Noon?")
}

func TestReplyDraft_NoDoubleRe(t *testing.T) {
	draft := ReplyDraft(Email{From: "Mira", Subject: "Re: Lunch plan"})
	assert.Equal(t, "Re: Lunch plan", draft.Subject)
}

func TestReplyDraft_FallsBackToDisplaySender(t *testing.T) {
	draft := ReplyDraft(Email{From: "mira@example.com", Subject: "Hi"})
	assert.Equal(t, "mira@example.com", draft.To)
}
