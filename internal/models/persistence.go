package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is bumped whenever Session changes shape. The save key embeds
// it so older blobs are simply never found.
const SchemaVersion = 2

// SaveKeyPrefix is the versioned key under which a session is stored.
const SaveKeyPrefix = "xianxia/session/v2"

var (
	// ErrCorruptSave means a stored blob could not be turned back into a
	// playable session.
	ErrCorruptSave = errors.New("corrupt save")
	// ErrFinishedSave means the stored session had already ended.
	ErrFinishedSave = errors.New("save belongs to a finished game")
)

// SaveKey returns the store key for a save slot. The empty slot is the default.
// Anything other than letters, digits, '-' and '_' in slot becomes '_', so a
// slot is always a single key segment.
func SaveKey(slot string) string {
	if slot == "" {
		return SaveKeyPrefix
	}
	return SaveKeyPrefix + "/" + strings.Map(slotRune, slot)
}

func slotRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
		return r
	}
	return '_'
}

// EncodeSession serializes s for the blob store.
func EncodeSession(s Session) (string, error) {
	s.Version = SchemaVersion
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	return string(data), nil
}

// DecodeSession parses a stored blob. Anything that would not resume into a
// playable game is reported as ErrCorruptSave or ErrFinishedSave.
func DecodeSession(blob string) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal([]byte(blob), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if s.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrCorruptSave, s.Version, SchemaVersion)
	}
	if err := s.Player.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if s.IsGameOver {
		return nil, ErrFinishedSave
	}
	if s.Turn < 0 {
		return nil, fmt.Errorf("%w: negative turn %d", ErrCorruptSave, s.Turn)
	}
	if len(s.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices to offer", ErrCorruptSave)
	}
	return &s, nil
}
