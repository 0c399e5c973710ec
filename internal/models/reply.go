package models

import "strings"

// ReplyDraft pre-fills a compose draft for replying to a message: the reply
// address, a "Re:" subject, and the quoted original body.
func ReplyDraft(e Email) Draft {
	to := e.SenderEmail
	if to == "" {
		to = e.From
	}

	subject := e.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	var body strings.Builder
	body.WriteString("\n\n")
	body.WriteString("On " + e.ReceivedDate.Format("Jan 2, 2006") + ", " + e.From + " wrote:\n")
	for _, line := range strings.Split(e.Body, "\n") {
		body.WriteString("> " + line + "\n")
	}

	return Draft{To: to, Subject: subject, Body: body.String()}
}
