package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/stock-scan/internal/inventory"
)

// ErrStorageCorrupt marks a snapshot that exists but cannot be decoded.
// It is recovered from by starting with an empty state.
var ErrStorageCorrupt = errors.New("session snapshot is corrupt")

// State is the persisted form of a session.
type State struct {
	SessionID string `json:"sessionId,omitempty"`

	Headers []string           `json:"headers,omitempty"`
	Columns inventory.Columns  `json:"columns"`
	Records []inventory.Record `json:"records"`

	// ScannedCodes are the accepted codes in insertion order, first casing.
	ScannedCodes []string `json:"scannedCodes"`

	CategoryFilter string `json:"categoryFilter"`
	LastScan       string `json:"lastScan"`

	SavedAt time.Time `json:"savedAt,omitempty"`
}

// Empty returns the first-run state: no records, no scans, no filter.
func Empty() State {
	return State{
		Records:      []inventory.Record{},
		ScannedCodes: []string{},
	}
}

// IsEmpty reports whether no table is loaded.
func (s State) IsEmpty() bool {
	return len(s.Records) == 0 && len(s.ScannedCodes) == 0
}

// Encode serializes a state to JSON.
func Encode(s State) ([]byte, error) {
	if s.Records == nil {
		s.Records = []inventory.Record{}
	}
	if s.ScannedCodes == nil {
		s.ScannedCodes = []string{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a JSON snapshot. Any failure is reported as
// ErrStorageCorrupt together with Empty().
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return Empty(), fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if s.Records == nil {
		s.Records = []inventory.Record{}
	}
	if s.ScannedCodes == nil {
		s.ScannedCodes = []string{}
	}
	return s, nil
}

// Store persists one snapshot under a fixed namespace.
//
// Load returns Empty() with a nil error when nothing was saved yet, and
// Empty() with an error wrapping ErrStorageCorrupt when the snapshot cannot
// be decoded. Callers always get a usable state.
type Store interface {
	Save(ctx context.Context, s State) error
	Load(ctx context.Context) (State, error)
}

// MemoryStore keeps the encoded snapshot in memory. Tests and dry runs use it.
type MemoryStore struct {
	data  []byte
	saves int
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) (State, error) {
	if len(m.data) == 0 {
		return Empty(), nil
	}
	return Decode(m.data)
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int { return m.saves }

// SetRaw replaces the stored bytes, bypassing encoding.
func (m *MemoryStore) SetRaw(data []byte) { m.data = data }
