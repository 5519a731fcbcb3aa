package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PriorCommit records one already-completed commit so a re-selection can
// reference it instead of losing the history.
type PriorCommit struct {
	ProjectID   string `json:"p"`
	ArchivePath string `json:"a"`
	TaskID      string `json:"t,omitempty"`
}

// SelectionContext is round-tripped through the platform's interaction
// payload (button/option values). It must carry identifiers only, never
// content: the payload is size-bounded and the artifact cache may not survive
// until the user clicks.
type SelectionContext struct {
	FileID    string        `json:"f"`
	Channel   string        `json:"c"`
	ProjectID string        `json:"pr,omitempty"`
	ThreadTS  string        `json:"ts,omitempty"`
	Prior     []PriorCommit `json:"pc,omitempty"`
	Action    string        `json:"ac,omitempty"`
}

// Encode serializes the context into a payload-safe opaque string.
func (s SelectionContext) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeSelectionContext parses a value produced by Encode.
func DecodeSelectionContext(v string) (SelectionContext, error) {
	var s SelectionContext
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return s, fmt.Errorf("invalid selection payload: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("invalid selection payload: %w", err)
	}
	if s.FileID == "" {
		return s, fmt.Errorf("invalid selection payload: missing file id")
	}
	return s, nil
}
