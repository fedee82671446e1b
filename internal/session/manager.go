package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Form holds the state of one user's unfinished dialogue: the intake
// questionnaire, a pending counter-proposal, or a reason prompt. It is
// persisted so a restart does not lose a half-filled form.
type Form struct {
	Key  string `json:"key"`
	Step Step   `json:"step"`

	// Mode distinguishes what the slot picker or text prompt feeds
	// into: a new request, an approver change, a counter-proposal, a
	// reason for a pending action, or a field edit.
	Mode      Mode   `json:"mode,omitempty"`
	RequestID int64  `json:"request_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Field     string `json:"field,omitempty"`

	Supplier         string `json:"supplier,omitempty"`
	Phone            string `json:"phone,omitempty"`
	CargoVolume      string `json:"cargo_volume,omitempty"`
	CargoDescription string `json:"cargo_description,omitempty"`
	Loading          string `json:"loading,omitempty"`
	Date             string `json:"date,omitempty"`
	Hour             int    `json:"hour,omitempty"`
	Minute           int    `json:"minute,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Step identifies the next input the dialogue waits for.
type Step string

const (
	StepNone             Step = ""
	StepSupplier         Step = "supplier"
	StepPhone            Step = "phone"
	StepCargoVolume      Step = "cargo_volume"
	StepCargoDescription Step = "cargo_description"
	StepLoading          Step = "loading"
	StepDate             Step = "date"
	StepHour             Step = "hour"
	StepMinute           Step = "minute"
	StepReason           Step = "reason"
	StepEditValue        Step = "edit_value"
)

// Mode identifies which flow the form belongs to.
type Mode string

const (
	ModeCreate  Mode = "create"
	ModeChange  Mode = "change"
	ModeCounter Mode = "counter"
	ModeReason  Mode = "reason"
	ModeEdit    Mode = "edit"
)

// Active reports whether the form is in the middle of a dialogue.
func (f *Form) Active() bool {
	return f.Step != StepNone
}

// Expired reports whether the form sat untouched longer than ttl.
func (f *Form) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || f.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(f.UpdatedAt) > ttl
}

// Reset drops all dialogue state but keeps the key.
func (f *Form) Reset() {
	key := f.Key
	*f = Form{Key: key}
}

// Manager manages dialogue forms keyed by channel:chat.
type Manager struct {
	dir   string
	ttl   time.Duration
	forms map[string]*Form
	mu    sync.Mutex
	now   func() time.Time
}

// NewManager creates a form manager spilling to <baseDir>/sessions.
// ttl <= 0 disables expiry.
func NewManager(baseDir string, ttl time.Duration) *Manager {
	dir := filepath.Join(baseDir, "sessions")
	os.MkdirAll(dir, 0755)
	return &Manager{
		dir:   dir,
		ttl:   ttl,
		forms: make(map[string]*Form),
		now:   time.Now,
	}
}

// GetOrCreate returns the form for a key, reviving it from disk when
// the process restarted mid-dialogue. An expired form comes back
// blank.
func (m *Manager) GetOrCreate(key string) *Form {
	m.mu.Lock()
	defer m.mu.Unlock()

	form, ok := m.forms[key]
	if !ok {
		form = &Form{Key: key}
		m.loadFromDisk(form)
		m.forms[key] = form
	}
	if form.Expired(m.now(), m.ttl) {
		form.Reset()
	}
	return form
}

// Save persists the form to disk. An inactive form is removed instead.
func (m *Manager) Save(form *Form) error {
	if !form.Active() {
		m.Clear(form.Key)
		return nil
	}
	form.UpdatedAt = m.now()

	payload, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return os.WriteFile(m.formPath(form.Key), payload, 0644)
}

// Clear drops a form from memory and disk.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	delete(m.forms, key)
	m.mu.Unlock()
	_ = os.Remove(m.formPath(key))
}

// PruneExpired drops every form past its ttl and returns how many.
func (m *Manager) PruneExpired() int {
	m.mu.Lock()
	now := m.now()
	var stale []string
	for key, form := range m.forms {
		if form.Expired(now, m.ttl) {
			stale = append(stale, key)
			delete(m.forms, key)
		}
	}
	m.mu.Unlock()

	for _, key := range stale {
		_ = os.Remove(m.formPath(key))
	}
	return len(stale)
}

func (m *Manager) loadFromDisk(form *Form) {
	raw, err := os.ReadFile(m.formPath(form.Key))
	if err != nil {
		return
	}
	var loaded Form
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return
	}
	loaded.Key = form.Key
	*form = loaded
}

func (m *Manager) formPath(key string) string {
	safeKey := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(m.dir, safeKey+".json")
}
