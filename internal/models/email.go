package models

import "time"

// Folder is the mutually exclusive category a message belongs to.
// "All mail" and "starred" are projections over the collection, not folders.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderOutbox  Folder = "outbox"
	FolderSpam    Folder = "spam"
	FolderTrash   Folder = "trash"
	FolderArchive Folder = "archive"
)

// Folders lists every valid folder value.
var Folders = []Folder{
	FolderInbox,
	FolderSent,
	FolderDrafts,
	FolderOutbox,
	FolderSpam,
	FolderTrash,
	FolderArchive,
}

// ParseFolder returns the Folder for the given name, or (FolderInbox, false)
// if the name is not a known folder.
func ParseFolder(name string) (Folder, bool) {
	for _, f := range Folders {
		if string(f) == name {
			return f, true
		}
	}
	return FolderInbox, false
}

// Email is the canonical in-memory record for one message.
//
// ServerStarred is the flag as reported by the remote mail API; Starred is the
// visible value, computed at read time as ServerStarred OR membership in the
// per-user starred-id set. Only the id set is ever persisted, never the
// merged value.
type Email struct {
	UID           string    `json:"uid"`
	From          string    `json:"from"`
	SenderEmail   string    `json:"sender_email,omitempty"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	HTMLBody      string    `json:"html_body,omitempty"`
	Folder        Folder    `json:"folder"`
	IsRead        bool      `json:"is_read"`
	ServerStarred bool      `json:"-"`
	Starred       bool      `json:"starred"`
	ReceivedDate  time.Time `json:"received_date"`
	Attachments   []string  `json:"attachments,omitempty"`
}

// Draft carries the caller-supplied fields for a saved draft. Zero-valued
// fields fall back to the defaults the collection store applies.
type Draft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
