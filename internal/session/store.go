package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"toolbridge/internal/agent"

	"github.com/google/uuid"
)

// ErrNoSessions is returned by Last when nothing has been saved yet.
var ErrNoSessions = errors.New("no sessions found")

type Record struct {
	ID       string          `json:"id"`
	Workdir  string          `json:"workdir,omitempty"`
	Model    string          `json:"model,omitempty"`
	Messages []agent.Message `json:"messages"`
	Updated  time.Time       `json:"updated"`
}

// Store keeps one JSON transcript per session under Dir.
type Store struct {
	Dir string
}

// DefaultStore returns the store under ~/.toolbridge/sessions.
func DefaultStore() (Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: filepath.Join(home, ".toolbridge", "sessions")}, nil
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Save writes the transcript and returns the session id, generating one when
// rec.ID is empty.
func (s Store) Save(rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if err := validID(rec.ID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	rec.Updated = time.Now()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}

	path := s.path(rec.ID)
	tmp, err := os.CreateTemp(s.Dir, rec.ID+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s Store) Load(id string) (Record, error) {
	var rec Record
	if err := validID(id); err != nil {
		return rec, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

// Last returns the most recently updated session.
func (s Store) Last() (Record, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNoSessions
	}
	return records[0], nil
}

// List returns all readable sessions, newest first.
func (s Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := s.Load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Updated.After(records[j].Updated)
	})
	return records, nil
}

func (s Store) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
