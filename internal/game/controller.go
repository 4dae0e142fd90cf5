// Package game runs the turn state machine: it owns the live session, asks
// the narrator for each turn, merges the reply, and hands snapshots to the
// saver.
package game

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/engine"
	"github.com/tatianab/xianxia/internal/models"
)

// Status is the controller's top-level state.
type Status int

const (
	AwaitingSetup Status = iota
	InProgress
	GameOver
)

func (s Status) String() string {
	switch s {
	case AwaitingSetup:
		return "awaiting_setup"
	case InProgress:
		return "in_progress"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// ErrInvalidSetup is returned when a session is started without a name or
// without a known identity.
var ErrInvalidSetup = errors.New("a name and an identity are required")

// Narrator produces the next turn. Implementations must always return a
// renderable result.
type Narrator interface {
	RequestTurn(ctx context.Context, req engine.TurnRequest) models.TurnResult
}

// Persister stores session snapshots.
type Persister interface {
	Save(session models.Session)
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}

// Controller is the single owner of the live session. Transitions that are not
// valid in the current state are ignored and report false.
type Controller struct {
	narrator Narrator
	saver    Persister
	logger   *slog.Logger

	mu      sync.Mutex
	status  Status
	session models.Session
}

// NewController returns a controller waiting for setup.
func NewController(narrator Narrator, saver Persister, logger *slog.Logger) *Controller {
	return &Controller{
		narrator: narrator,
		saver:    saver,
		logger:   logger,
		status:   AwaitingSetup,
	}
}

// Status reports the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Busy reports whether a narrator call is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Busy
}

// Snapshot returns a copy of the session for rendering.
func (c *Controller) Snapshot() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// StartSession begins a new game. It blocks until the opening turn resolves.
// Calls outside AwaitingSetup, or while the opening is in flight, return
// (false, nil).
func (c *Controller) StartSession(ctx context.Context, name string, identity catalog.Identity, lang catalog.Lang) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrInvalidSetup
	}
	if _, ok := catalog.IdentityByID(identity.ID); !ok {
		return false, ErrInvalidSetup
	}

	c.mu.Lock()
	if c.status != AwaitingSetup || c.session.Busy {
		status := c.status
		c.mu.Unlock()
		c.logger.Debug("Ignoring start", "status", status)
		return false, nil
	}

	if err := c.saver.Clear(ctx); err != nil {
		c.logger.Error("Failed to clear previous save", "error", err)
	}

	c.session = models.Session{
		Player:     models.NewPlayer(name, identity, lang),
		IdentityID: identity.ID,
		Language:   lang,
		Busy:       true,
	}
	req := c.requestLocked("", &identity)
	c.mu.Unlock()

	c.logger.Info("Starting session", "identity", identity.ID, "language", lang)
	result := c.narrator.RequestTurn(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveLocked(result)
	return true, nil
}

// SubmitChoice plays one turn with choice. It blocks until the turn resolves.
// It returns false without doing anything when no turn may be taken: before
// setup, after game over, while another turn is in flight, or when choice is
// not among the offered ones.
func (c *Controller) SubmitChoice(ctx context.Context, choice models.Choice) bool {
	c.mu.Lock()
	if c.status != InProgress || c.session.Busy || c.session.IsGameOver || !c.session.HasChoice(choice.ID) {
		c.mu.Unlock()
		return false
	}

	// The opening never completed; replay it instead of a normal turn.
	var identity *catalog.Identity
	action := choice.Text
	if c.session.Turn == 0 {
		if ident, ok := catalog.IdentityByID(c.session.IdentityID); ok {
			identity = &ident
			action = ""
		}
	}

	req := c.requestLocked(action, identity)
	c.session.Log = append(c.session.Log, models.NewLogEntry(models.RoleUser, choice.LogText(c.session.Language)))
	c.session.Choices = nil
	c.session.Busy = true
	c.saver.Save(c.session)
	c.mu.Unlock()

	result := c.narrator.RequestTurn(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveLocked(result)
	return true
}

// Reincarnate acknowledges a finished game and returns to setup.
func (c *Controller) Reincarnate(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != GameOver {
		return false
	}
	c.resetLocked(ctx)
	return true
}

// Restart abandons an idle game in progress and returns to setup.
func (c *Controller) Restart(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != InProgress || c.session.Busy {
		return false
	}
	c.resetLocked(ctx)
	return true
}

// LoadPersistedSession resumes a saved game if one exists. Only valid before
// setup. Store errors are logged and treated as no save.
func (c *Controller) LoadPersistedSession(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != AwaitingSetup || c.session.Busy {
		return false
	}

	saved, err := c.saver.Load(ctx)
	if err != nil {
		c.logger.Error("Failed to load save", "error", err)
		return false
	}
	if saved == nil {
		return false
	}

	c.session = *saved
	c.session.Busy = false
	c.status = InProgress
	c.logger.Info("Resumed session", "turn", c.session.Turn, "phase", c.session.Player.Phase)
	return true
}

// requestLocked builds the narrator context from the transcript as it stands
// before the current action is appended.
func (c *Controller) requestLocked(action string, identity *catalog.Identity) engine.TurnRequest {
	return engine.TurnRequest{
		History:  c.session.RecentLog(engine.HistoryWindow),
		Player:   c.session.Player.Clone(),
		Action:   action,
		Language: c.session.Language,
		Identity: identity,
	}
}

// resolveLocked applies a narrator reply and ends the busy period.
func (c *Controller) resolveLocked(result models.TurnResult) {
	c.session.Log = append(c.session.Log, models.NewLogEntry(models.RoleNarrator, result.Narrative))
	c.session.Choices = result.Choices
	if len(c.session.Choices) == 0 {
		c.session.Choices = engine.Fallback(c.session.Language).Choices
	}
	c.session.Busy = false

	if result.Fallback {
		c.status = InProgress
		c.logger.Info("Turn fell back", "turn", c.session.Turn)
		c.saver.Save(c.session)
		return
	}

	c.session.Player = models.ApplyUpdate(c.session.Player, result.Updates)
	c.session.Turn++

	if models.IsTerminal(c.session.Player, result.GameOver) {
		c.session.IsGameOver = true
		c.session.Choices = nil
		c.status = GameOver
		c.logger.Info("Game over", "turn", c.session.Turn, "hp", c.session.Player.HP)
	} else {
		c.status = InProgress
	}

	c.logger.Debug("Turn resolved",
		"turn", c.session.Turn,
		"phase", c.session.Player.Phase,
		"hp", c.session.Player.HP,
		"choices", len(c.session.Choices))
	c.saver.Save(c.session)
}

func (c *Controller) resetLocked(ctx context.Context) {
	if err := c.saver.Clear(ctx); err != nil {
		c.logger.Error("Failed to clear save", "error", err)
	}
	c.session = models.Session{}
	c.status = AwaitingSetup
}
