// Package theme holds the fixed set of UI palettes and the persisted theme
// choice. The theme is global, not per-user.
package theme

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/nandhan/webmail/internal/prefs"
)

// DefaultName is the theme used when nothing (or something unknown) is stored.
const DefaultName = "Classic"

// Palette is one named color scheme.
type Palette struct {
	Mode        string `json:"mode"`
	Bg          string `json:"bg"`
	SidebarBg   string `json:"sidebar_bg"`
	SidebarText string `json:"sidebar_text"`
	CardBg      string `json:"card_bg"`
	Text        string `json:"text"`
	SubText     string `json:"sub_text"`
	Border      string `json:"border"`
	Accent      string `json:"accent"`
}

var palettes = map[string]Palette{
	"Classic": {
		Mode: "light", Bg: "#E9F4FF", SidebarBg: "#E9F4FF", SidebarText: "#1956AC",
		CardBg: "#FFFFFF", Text: "#1f2937", SubText: "#4b5563", Border: "#e5e7eb", Accent: "#1956AC",
	},
	"Dark": {
		Mode: "dark", Bg: "#111827", SidebarBg: "#1f2937", SidebarText: "#93C5FD",
		CardBg: "#1f2937", Text: "#F9FAFB", SubText: "#D1D5DB", Border: "#374151", Accent: "#3B82F6",
	},
	"Nature": {
		Mode: "light", Bg: "#F1F8E9", SidebarBg: "#F1F8E9", SidebarText: "#33691E",
		CardBg: "#FFFFFF", Text: "#1B5E20", SubText: "#558B2F", Border: "#C5E1A5", Accent: "#558B2F",
	},
}

// Names returns the available theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manager tracks the active theme and persists changes.
type Manager struct {
	mu      sync.RWMutex
	prefs   *prefs.Store
	current string
}

// NewManager creates a theme manager starting on the default theme.
func NewManager(prefsStore *prefs.Store) *Manager {
	return &Manager{prefs: prefsStore, current: DefaultName}
}

// Load restores the stored theme choice. A missing or unknown stored name
// degrades to the default.
func (m *Manager) Load(ctx context.Context) {
	value, err := m.prefs.Get(ctx, prefs.Key{Namespace: prefs.NamespaceTheme})
	if errors.Is(err, prefs.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("theme: Warning: failed to read stored theme: %v", err)
		return
	}

	if _, ok := palettes[value]; !ok {
		return
	}

	m.mu.Lock()
	m.current = value
	m.mu.Unlock()
}

// Current returns the active theme name and its palette.
func (m *Manager) Current() (string, Palette) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, palettes[m.current]
}

// Set switches to the named theme and persists the choice. An unknown name
// is ignored.
func (m *Manager) Set(ctx context.Context, name string) {
	if _, ok := palettes[name]; !ok {
		return
	}

	m.mu.Lock()
	m.current = name
	m.mu.Unlock()

	if err := m.prefs.Set(ctx, prefs.Key{Namespace: prefs.NamespaceTheme}, name); err != nil {
		log.Printf("theme: Warning: failed to persist theme: %v", err)
	}
}
