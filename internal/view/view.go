// Package view derives the read-only folder views from a collection
// snapshot. Projections are pure and recomputed in full on every call: at a
// few hundred records per session, O(n) filtering beats maintaining indexes.
package view

import (
	"strings"

	"github.com/nandhan/webmail/internal/models"
)

// Inbox returns inbox records, optionally narrowed by a free-text query.
// The match is a case-insensitive substring test against subject, display
// sender, and sender address.
func Inbox(emails []models.Email, query string) []models.Email {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]models.Email, 0, len(emails))
	for _, e := range emails {
		if e.Folder != models.FolderInbox {
			continue
		}
		if query != "" && !matchesQuery(e, query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Starred returns every starred record regardless of folder. A trashed,
// starred message still appears here: starring is cross-cutting.
func Starred(emails []models.Email) []models.Email {
	out := make([]models.Email, 0, len(emails))
	for _, e := range emails {
		if e.Starred {
			out = append(out, e)
		}
	}
	return out
}

// AllMail returns everything except trash.
func AllMail(emails []models.Email) []models.Email {
	out := make([]models.Email, 0, len(emails))
	for _, e := range emails {
		if e.Folder != models.FolderTrash {
			out = append(out, e)
		}
	}
	return out
}

// ByFolder returns the records in exactly the given folder.
func ByFolder(emails []models.Email, folder models.Folder) []models.Email {
	out := make([]models.Email, 0, len(emails))
	for _, e := range emails {
		if e.Folder == folder {
			out = append(out, e)
		}
	}
	return out
}

// Unread counts the unread records in a folder, for sidebar badges.
func Unread(emails []models.Email, folder models.Folder) int {
	count := 0
	for _, e := range emails {
		if e.Folder == folder && !e.IsRead {
			count++
		}
	}
	return count
}

func matchesQuery(e models.Email, query string) bool {
	return strings.Contains(strings.ToLower(e.Subject), query) ||
		strings.Contains(strings.ToLower(e.From), query) ||
		strings.Contains(strings.ToLower(e.SenderEmail), query)
}
