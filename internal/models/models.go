package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/xianxia/internal/catalog"
)

// StoryPhase is the coarse narrative stage. Phases only ever move forward.
type StoryPhase string

const (
	PhaseOrigin      StoryPhase = "origin"
	PhaseConvergence StoryPhase = "convergence"
	PhaseMain        StoryPhase = "main"
)

func (p StoryPhase) rank() int {
	switch p {
	case PhaseOrigin:
		return 0
	case PhaseConvergence:
		return 1
	case PhaseMain:
		return 2
	default:
		return -1
	}
}

// Valid reports whether p is one of the known phases.
func (p StoryPhase) Valid() bool { return p.rank() >= 0 }

// After reports whether p is strictly later than q.
func (p StoryPhase) After(q StoryPhase) bool {
	return p.Valid() && p.rank() > q.rank()
}

// ActionType tags a choice. The set is closed; see ParseActionType.
type ActionType string

const (
	ActionExplore  ActionType = "explore"
	ActionMeditate ActionType = "meditate"
	ActionCombat   ActionType = "combat"
	ActionTalk     ActionType = "talk"
	ActionTravel   ActionType = "travel"
	ActionStory    ActionType = "story"
	ActionContinue ActionType = "continue"
)

var actionTypes = map[ActionType]bool{
	ActionExplore:  true,
	ActionMeditate: true,
	ActionCombat:   true,
	ActionTalk:     true,
	ActionTravel:   true,
	ActionStory:    true,
	ActionContinue: true,
}

// ParseActionType normalizes a raw tag. Unknown tags become ActionStory.
func ParseActionType(s string) ActionType {
	a := ActionType(strings.ToLower(strings.TrimSpace(s)))
	if actionTypes[a] {
		return a
	}
	return ActionStory
}

// Role identifies who wrote a log entry.
type Role string

const (
	RoleUser     Role = "user"
	RoleNarrator Role = "narrator"
	RoleSystem   Role = "system"
)

// LogEntry is one line of the transcript.
type LogEntry struct {
	ID        string `yaml:"id"`
	Role      Role   `yaml:"role"`
	Text      string `yaml:"text"`
	Timestamp int64  `yaml:"timestamp"` // unix millis
}

// NewLogEntry stamps a fresh entry with a random id and the current time.
func NewLogEntry(role Role, text string) LogEntry {
	return LogEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Choice is an option offered to the player for the next turn.
type Choice struct {
	ID         string     `yaml:"id"`
	Text       string     `yaml:"text"`
	ActionType ActionType `yaml:"action_type"`
}

// NewChoice gives a choice a fresh id.
func NewChoice(text string, action ActionType) Choice {
	return Choice{ID: uuid.NewString(), Text: text, ActionType: action}
}

// LogText is what the transcript records when c is taken. Continue choices
// log the localized placeholder instead of their label.
func (c Choice) LogText(lang catalog.Lang) string {
	if c.ActionType == ActionContinue {
		return catalog.Text(lang).ContinueAction
	}
	return c.Text
}

// TurnResult is a narrator reply after validation: prose, a proposed delta,
// and the next set of choices.
type TurnResult struct {
	Narrative string
	Updates   StatDelta
	Choices   []Choice
	GameOver  bool

	// Fallback marks a canned reply produced because the oracle failed.
	// Its Updates are empty and it never ends the game.
	Fallback bool
}

// Session aggregates all resumable game data.
type Session struct {
	Version    int          `yaml:"version"`
	Player     PlayerState  `yaml:"player"`
	IdentityID string       `yaml:"identity_id"`
	Turn       int          `yaml:"turn"`
	IsGameOver bool         `yaml:"is_game_over"`
	Log        []LogEntry   `yaml:"log"`
	Choices    []Choice     `yaml:"choices"`
	Language   catalog.Lang `yaml:"language"`

	// Busy is true while a narrator call is outstanding. Never persisted.
	Busy bool `yaml:"-"`
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	out.Player = s.Player.Clone()
	out.Log = append([]LogEntry(nil), s.Log...)
	out.Choices = append([]Choice(nil), s.Choices...)
	return out
}

// RecentLog returns at most the last n transcript entries.
func (s Session) RecentLog(n int) []LogEntry {
	if n <= 0 {
		return nil
	}
	if len(s.Log) <= n {
		return append([]LogEntry(nil), s.Log...)
	}
	return append([]LogEntry(nil), s.Log[len(s.Log)-n:]...)
}

// HasChoice reports whether a choice with id is currently offered.
func (s Session) HasChoice(id string) bool {
	for _, c := range s.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}
