/*
Package state persists the small amount of cross-session bookkeeping the
retrieval layer keeps: a session-tracking record for conversation
threading, an append-only context log of injection events, and a cached
status line for the host UI. Everything is plain JSON under one state
directory, and writes are fail-soft so a full disk never breaks a hook.
*/
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

/*
SessionRecord threads one host session to the next. PreviousSessionID is
the record that was latest when this session started.
*/
type SessionRecord struct {
	SessionID         string    `json:"session_id"`
	PreviousSessionID string    `json:"previous_session_id,omitempty"`
	Project           string    `json:"project"`
	WorkingDirectory  string    `json:"working_directory"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at,omitempty"`
	MessageCount      int       `json:"message_count"`
	TriggerCount      int       `json:"trigger_count"`
}

/*
ContextEntry is one line of the append-only context log: which event ran,
how many memories it injected, and how long it took.
*/
type ContextEntry struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	Injected  int       `json:"injected"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

/*
StatusLine is the cached summary the host status bar reads between events.
*/
type StatusLine struct {
	Profile       string    `json:"profile"`
	Transport     string    `json:"transport"`
	MemoryCount   int       `json:"memory_count"`
	LastInjection time.Time `json:"last_injection,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

/*
Manager owns the state directory. Safe for concurrent use within one
process; cross-process writers last-write-win, which is acceptable for
advisory state.
*/
type Manager struct {
	mu       sync.Mutex
	stateDir string
}

func NewManager(stateDir string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(stateDir, "sessions"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{stateDir: stateDir}, nil
}

/*
SaveSession persists the record and marks it as the latest session.
*/
func (m *Manager) SaveSession(record SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeJSON(m.sessionPath(record.SessionID), record); err != nil {
		return err
	}

	return m.writeJSON(filepath.Join(m.stateDir, "sessions", "latest.json"), record)
}

/*
LoadSession reads one session record; ok is false when it does not exist
or cannot be parsed.
*/
func (m *Manager) LoadSession(sessionID string) (SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.readSession(m.sessionPath(sessionID))
}

/*
LatestSession returns the most recently saved session record.
*/
func (m *Manager) LatestSession() (SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.readSession(filepath.Join(m.stateDir, "sessions", "latest.json"))
}

/*
AppendContextLog adds one line to the context log. Failures are logged and
swallowed; the log is advisory.
*/
func (m *Manager) AppendContextLog(entry ContextEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.stateDir, "context.log.jsonl")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warn("context log unavailable", "error", err)
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(entry); err != nil {
		log.Warn("context log write failed", "error", err)
	}
}

/*
WriteStatusLine caches the status summary. Fail-soft.
*/
func (m *Manager) WriteStatusLine(status StatusLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.UpdatedAt = time.Now()
	if err := m.writeJSON(filepath.Join(m.stateDir, "status.json"), status); err != nil {
		log.Warn("status line write failed", "error", err)
	}
}

/*
ReadStatusLine returns the cached status summary, if any.
*/
func (m *Manager) ReadStatusLine() (StatusLine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var status StatusLine
	data, err := os.ReadFile(filepath.Join(m.stateDir, "status.json"))
	if err != nil || json.Unmarshal(data, &status) != nil {
		return StatusLine{}, false
	}

	return status, true
}

/*
Cleanup removes session records older than maxAge. The latest pointer and
the context log are kept.
*/
func (m *Manager) Cleanup(maxAge time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Join(m.stateDir, "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.Name() == "latest.json" || entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to remove state file: %w", err)
			}
		}
	}

	return nil
}

func (m *Manager) sessionPath(sessionID string) string {
	return filepath.Join(m.stateDir, "sessions", sessionID+".json")
}

func (m *Manager) readSession(path string) (SessionRecord, bool) {
	var record SessionRecord

	data, err := os.ReadFile(path)
	if err != nil || json.Unmarshal(data, &record) != nil {
		return SessionRecord{}, false
	}

	return record, true
}

func (m *Manager) writeJSON(path string, value any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(value); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return nil
}
