package engine

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/models"
)

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/opening.txt
var openingPrompt string

//go:embed prompts/turn.txt
var turnPrompt string

//go:embed turn.schema.json
var turnSchemaJSON string

// HistoryWindow is how many transcript entries are sent with each turn.
const HistoryWindow = 6

// MaxChoices caps the choices installed from one reply.
const MaxChoices = 4

var (
	funcs = template.FuncMap{
		"join":  strings.Join,
		"upper": strings.ToUpper,
	}
	systemTmpl  = template.Must(template.New("system").Funcs(funcs).Parse(systemPrompt))
	openingTmpl = template.Must(template.New("opening").Funcs(funcs).Parse(openingPrompt))
	turnTmpl    = template.Must(template.New("turn").Funcs(funcs).Parse(turnPrompt))

	turnSchema = jsonschema.MustCompileString("turn.schema.json", turnSchemaJSON)
)

// Prompt is one rendered request to the model.
type Prompt struct {
	System string
	User   string
}

// Generator sends a prompt to a language model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// TurnRequest carries everything the narrator needs for one turn. The engine
// keeps no state between calls.
type TurnRequest struct {
	History  []models.LogEntry
	Player   models.PlayerState
	Action   string
	Language catalog.Lang

	// Identity is set only for the opening turn.
	Identity *catalog.Identity
}

// Engine is the narrator gateway. RequestTurn never fails: any problem with
// the model call or its reply yields the canned Fallback.
type Engine struct {
	gen    Generator
	logger *slog.Logger
}

// NewEngine wraps a generator.
func NewEngine(gen Generator, logger *slog.Logger) *Engine {
	return &Engine{gen: gen, logger: logger}
}

// NewGeminiEngine builds an engine backed by Gemini.
func NewGeminiEngine(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*Engine, error) {
	gen, err := NewGeminiGenerator(ctx, apiKey, modelName)
	if err != nil {
		return nil, err
	}
	return NewEngine(gen, logger), nil
}

// Close releases the generator if it holds resources.
func (e *Engine) Close() {
	if c, ok := e.gen.(io.Closer); ok {
		if err := c.Close(); err != nil {
			e.logger.Warn("Failed to close narrator client", "error", err)
		}
	}
}

// RequestTurn makes exactly one model call and returns a validated result.
func (e *Engine) RequestTurn(ctx context.Context, req TurnRequest) (result models.TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Narrator panicked", "panic", r)
			result = Fallback(req.Language)
		}
	}()

	prompt, err := BuildPrompt(req)
	if err != nil {
		e.logger.Error("Failed to build narrator prompt", "error", err)
		return Fallback(req.Language)
	}

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("Narrator call failed", "error", err)
		return Fallback(req.Language)
	}

	result, err = DecodeTurn(raw)
	if err != nil {
		e.logger.Warn("Narrator reply rejected", "error", err, "raw_length", len(raw))
		return Fallback(req.Language)
	}

	e.logger.Debug("Narrator reply accepted", "choices", len(result.Choices), "game_over", result.GameOver)
	return result
}

// Fallback is the in-fiction apology used whenever the narrator fails. It
// offers a single continue choice so the player can retry.
func Fallback(lang catalog.Lang) models.TurnResult {
	text := catalog.Text(lang)
	return models.TurnResult{
		Narrative: text.FallbackNarrative,
		Choices:   []models.Choice{models.NewChoice(text.FallbackChoice, models.ActionContinue)},
		Fallback:  true,
	}
}

// BuildPrompt renders the system instruction and the user message for req.
func BuildPrompt(req TurnRequest) (Prompt, error) {
	phase := req.Player.Phase
	if !phase.Valid() {
		phase = models.PhaseOrigin
	}

	var sys bytes.Buffer
	if err := systemTmpl.Execute(&sys, struct {
		Lang  catalog.Lang
		Phase models.StoryPhase
	}{req.Language, phase}); err != nil {
		return Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}

	history := req.History
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var user bytes.Buffer
	if req.Identity != nil {
		data := struct {
			Player              models.PlayerState
			IdentityName        string
			IdentityDescription string
			Action              string
		}{req.Player, req.Identity.DisplayName(req.Language), req.Identity.Describe(req.Language), req.Action}
		if err := openingTmpl.Execute(&user, data); err != nil {
			return Prompt{}, fmt.Errorf("render opening prompt: %w", err)
		}
	} else {
		data := struct {
			Player  models.PlayerState
			History []models.LogEntry
			Action  string
		}{req.Player, history, req.Action}
		if err := turnTmpl.Execute(&user, data); err != nil {
			return Prompt{}, fmt.Errorf("render turn prompt: %w", err)
		}
	}

	return Prompt{System: sys.String(), User: user.String()}, nil
}

// turnResponse is the wire shape of a narrator reply.
type turnResponse struct {
	Narrative   string `json:"narrative"`
	StatUpdates *struct {
		HPChange        int      `json:"hpChange"`
		QiChange        int      `json:"qiChange"`
		GoldChange      int      `json:"goldChange"`
		KarmaChange     int      `json:"karmaChange"`
		NewRealm        string   `json:"newRealm"`
		NewLocation     string   `json:"newLocation"`
		SetSpiritRoot   string   `json:"setSpiritRoot"`
		SetStoryPhase   string   `json:"setStoryPhase"`
		InventoryAdd    []string `json:"inventoryAdd"`
		InventoryRemove []string `json:"inventoryRemove"`
	} `json:"statUpdates"`
	Choices []struct {
		Text       string `json:"text"`
		ActionType string `json:"actionType"`
	} `json:"choices"`
	IsGameOver bool `json:"isGameOver"`
}

// DecodeTurn validates a raw reply against the turn schema and converts it.
func DecodeTurn(raw string) (models.TurnResult, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return models.TurnResult{}, fmt.Errorf("parse reply: %w", err)
	}
	if err := turnSchema.Validate(doc); err != nil {
		return models.TurnResult{}, fmt.Errorf("reply does not match schema: %w", err)
	}

	var resp turnResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return models.TurnResult{}, fmt.Errorf("decode reply: %w", err)
	}

	narrative := strings.TrimSpace(resp.Narrative)
	if narrative == "" {
		return models.TurnResult{}, errors.New("reply has an empty narrative")
	}

	result := models.TurnResult{
		Narrative: narrative,
		GameOver:  resp.IsGameOver,
	}

	for _, c := range resp.Choices {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		result.Choices = append(result.Choices, models.NewChoice(text, models.ParseActionType(c.ActionType)))
		if len(result.Choices) == MaxChoices {
			break
		}
	}
	if len(result.Choices) == 0 {
		return models.TurnResult{}, errors.New("reply has no usable choices")
	}

	if u := resp.StatUpdates; u != nil {
		result.Updates = models.StatDelta{
			HPChange:        u.HPChange,
			QiChange:        u.QiChange,
			GoldChange:      u.GoldChange,
			KarmaChange:     u.KarmaChange,
			NewRealm:        strings.TrimSpace(u.NewRealm),
			NewLocation:     strings.TrimSpace(u.NewLocation),
			SetSpiritRoot:   strings.TrimSpace(u.SetSpiritRoot),
			SetStoryPhase:   models.StoryPhase(u.SetStoryPhase),
			InventoryAdd:    u.InventoryAdd,
			InventoryRemove: u.InventoryRemove,
		}
	}

	return result, nil
}
