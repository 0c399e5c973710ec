// Package store owns the authoritative in-memory email collection for the
// active session. Mutations are synchronous state transitions; network calls
// are layered on top as fire-and-forget side effects. Failed sends keep
// their optimistic record on purpose ("fire-and-forget with notification"):
// the record is user-visible proof the message was attempted, and the failure
// surfaces as a transient notification instead of a rollback.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nandhan/webmail/internal/gateway"
	"github.com/nandhan/webmail/internal/models"
	"github.com/nandhan/webmail/internal/normalize"
	"github.com/nandhan/webmail/internal/notify"
	"github.com/nandhan/webmail/internal/prefs"
)

// ErrNoSession is returned when a snapshot load runs with nobody logged in.
var ErrNoSession = errors.New("store: no active session")

// ErrStaleSnapshot is returned when a fetch completes after the session
// identity changed; the late result is discarded, never applied.
var ErrStaleSnapshot = errors.New("store: stale snapshot discarded")

// Mailer is the slice of the mail gateway the store needs.
type Mailer interface {
	FetchInbox(ctx context.Context, limit int) (json.RawMessage, error)
	SendMail(ctx context.Context, req gateway.SendRequest) error
	MarkRead(ctx context.Context, uid string) error
}

// Sessions supplies the current identity. The store namespaces its collection
// and starred set by the session's user email.
type Sessions interface {
	CurrentUser() (models.User, bool)
}

// Store is the email collection store.
type Store struct {
	mailer   Mailer
	prefs    *prefs.Store
	sessions Sessions
	hub      *notify.Hub
	pageSize int

	// fetches collapses concurrent refreshes for the same user into one
	// gateway call.
	fetches singleflight.Group

	mu         sync.RWMutex
	emails     []models.Email
	starredIDs map[string]struct{}
	loaded     bool
}

// NewStore creates a collection store. pageSize bounds the inbox fetch.
func NewStore(mailer Mailer, prefsStore *prefs.Store, sessions Sessions, hub *notify.Hub, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Store{
		mailer:     mailer,
		prefs:      prefsStore,
		sessions:   sessions,
		hub:        hub,
		pageSize:   pageSize,
		starredIDs: make(map[string]struct{}),
	}
}

// LoadSnapshot fetches a fresh batch from the gateway, normalizes it, merges
// the persisted starred-id set, and replaces the whole collection. On
// transport failure the prior collection, if any, is preserved.
//
// The replace only happens if the session identity at response time still
// matches the identity at request time; otherwise the late result is
// discarded so a logged-out or switched user never sees a prior user's inbox.
func (s *Store) LoadSnapshot(ctx context.Context) error {
	user, ok := s.sessions.CurrentUser()
	if !ok {
		return ErrNoSession
	}

	result, err, _ := s.fetches.Do(user.Email, func() (any, error) {
		return s.mailer.FetchInbox(ctx, s.pageSize)
	})
	if err != nil {
		return fmt.Errorf("failed to load inbox: %w", err)
	}
	raw := result.(json.RawMessage)

	// Stale-response guard: the fetch may have outlived the session.
	current, ok := s.sessions.CurrentUser()
	if !ok || current.Email != user.Email {
		log.Printf("store: discarding snapshot for %s, session changed", user.Email)
		return ErrStaleSnapshot
	}

	emails := normalize.NormalizeBatch(raw, time.Now())

	starredIDs, err := s.prefs.StarredIDs(ctx, user.Email)
	if err != nil {
		log.Printf("store: Warning: failed to read starred ids: %v", err)
		starredIDs = nil
	}
	starredSet := make(map[string]struct{}, len(starredIDs))
	for _, id := range starredIDs {
		starredSet[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the lock: a logout may have cleared the store while we
	// were normalizing.
	current, ok = s.sessions.CurrentUser()
	if !ok || current.Email != user.Email {
		return ErrStaleSnapshot
	}

	s.emails = emails
	s.starredIDs = starredSet
	s.loaded = true
	return nil
}

// Send synthesizes a sent record, prepends it optimistically, then invokes
// the gateway. The optimistic record is kept even when the gateway rejects
// the send; the failure is reported through the notification hub and the
// boolean return.
func (s *Store) Send(ctx context.Context, to, subject, body string) bool {
	user, ok := s.sessions.CurrentUser()
	if !ok {
		s.hub.Error("Not signed in")
		return false
	}

	email := models.Email{
		UID:          uuid.NewString(),
		From:         user.Username,
		SenderEmail:  user.Email,
		To:           to,
		Subject:      subject,
		Body:         body,
		Folder:       models.FolderSent,
		IsRead:       true,
		ReceivedDate: time.Now(),
	}

	s.mu.Lock()
	s.emails = append([]models.Email{email}, s.emails...)
	s.mu.Unlock()

	if err := s.mailer.SendMail(ctx, gateway.SendRequest{To: to, Subject: subject, Body: body}); err != nil {
		log.Printf("store: Warning: send failed, keeping optimistic record: %v", err)
		s.hub.Error("Failed to send email")
		return false
	}

	s.hub.Success("Email sent")
	return true
}

// SaveDraft synthesizes a draft record and prepends it. Purely local, cannot
// fail.
func (s *Store) SaveDraft(draft models.Draft) models.Email {
	user, _ := s.sessions.CurrentUser()

	email := models.Email{
		UID:          uuid.NewString(),
		From:         user.Username,
		SenderEmail:  user.Email,
		To:           draft.To,
		Subject:      draft.Subject,
		Body:         draft.Body,
		Folder:       models.FolderDrafts,
		IsRead:       true,
		ReceivedDate: time.Now(),
	}

	s.mu.Lock()
	s.emails = append([]models.Email{email}, s.emails...)
	s.mu.Unlock()

	s.hub.Success("Draft saved")
	return email
}

// ToggleStar flips the visible starred state of a record and persists the
// starred-id set immediately. An unknown uid, or no active session, is a
// no-op. If persisting the set fails, the in-memory flip is rolled back so
// the two never diverge.
func (s *Store) ToggleStar(ctx context.Context, uid string) {
	// Resolve the user at toggle time. Records can exist before any snapshot
	// (drafts, optimistic sends), so a snapshot-time identity would be stale
	// or empty here.
	user, ok := s.sessions.CurrentUser()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(uid)
	if idx < 0 {
		return
	}

	email := &s.emails[idx]
	_, inSet := s.starredIDs[uid]
	wasServerStarred := email.ServerStarred

	if email.ServerStarred || inSet {
		// Unstar. The server flag is cleared in-memory only; the persisted
		// fact remains the id set, so a fresh fetch re-applies whatever the
		// server reports.
		delete(s.starredIDs, uid)
		email.ServerStarred = false
	} else {
		s.starredIDs[uid] = struct{}{}
	}

	if err := s.prefs.SaveStarredIDs(ctx, user.Email, s.starredIDList()); err != nil {
		log.Printf("store: Warning: failed to persist starred ids, reverting toggle: %v", err)
		email.ServerStarred = wasServerStarred
		if inSet {
			s.starredIDs[uid] = struct{}{}
		} else {
			delete(s.starredIDs, uid)
		}
	}
}

// ToggleArchive moves a record to archive, or back to inbox if it is already
// archived. An unknown uid is a no-op.
func (s *Store) ToggleArchive(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(uid)
	if idx < 0 {
		return
	}

	if s.emails[idx].Folder == models.FolderArchive {
		s.emails[idx].Folder = models.FolderInbox
	} else {
		s.emails[idx].Folder = models.FolderArchive
	}
}

// MoveToTrash sets a record's folder to trash. This is the only effect of the
// delete action from any folder view; the record stays in the collection.
// An unknown uid is a no-op.
func (s *Store) MoveToTrash(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(uid)
	if idx < 0 {
		return
	}

	s.emails[idx].Folder = models.FolderTrash
}

// EmptyTrash removes every trashed record from the collection. This is the
// only operation that hard-deletes records.
func (s *Store) EmptyTrash() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.emails[:0]
	removed := 0
	for _, email := range s.emails {
		if email.Folder == models.FolderTrash {
			removed++
			continue
		}
		kept = append(kept, email)
	}
	s.emails = kept
	return removed
}

// MarkRead sets a record's read flag and tells the server best-effort. The
// local flag is never rolled back on gateway failure. An unknown uid is a
// no-op.
func (s *Store) MarkRead(ctx context.Context, uid string) {
	s.mu.Lock()
	idx := s.indexOf(uid)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	alreadyRead := s.emails[idx].IsRead
	s.emails[idx].IsRead = true
	s.mu.Unlock()

	if alreadyRead {
		return
	}

	if err := s.mailer.MarkRead(ctx, uid); err != nil {
		log.Printf("store: Warning: failed to mark %s read on server: %v", uid, err)
	}
}

// Clear discards the collection entirely. Wired to session logout so nothing
// leaks between user sessions in the same process.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails = nil
	s.starredIDs = make(map[string]struct{})
	s.loaded = false
}

// Snapshot returns a copy of the collection with the visible starred flag
// computed (server flag OR starred-id set membership). Readers never get a
// reference they could mutate.
func (s *Store) Snapshot() []models.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Email, len(s.emails))
	for i, email := range s.emails {
		_, inSet := s.starredIDs[email.UID]
		email.Starred = email.ServerStarred || inSet
		// Attachments is the only reference-typed field; clone it so a
		// reader writing through the snapshot cannot reach store state.
		if email.Attachments != nil {
			email.Attachments = append([]string(nil), email.Attachments...)
		}
		out[i] = email
	}
	return out
}

// Loaded reports whether a snapshot has been applied for the active session.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len returns the number of records in the collection, trashed ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.emails)
}

// indexOf returns the position of uid in the collection, or -1. Callers hold
// the lock.
func (s *Store) indexOf(uid string) int {
	for i := range s.emails {
		if s.emails[i].UID == uid {
			return i
		}
	}
	return -1
}

// starredIDList returns the starred set as a sorted slice for persistence.
// Callers hold the lock.
func (s *Store) starredIDList() []string {
	ids := make([]string, 0, len(s.starredIDs))
	for id := range s.starredIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
