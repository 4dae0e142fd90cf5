package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/config"
	"github.com/tatianab/xianxia/internal/engine"
	"github.com/tatianab/xianxia/internal/game"
	"github.com/tatianab/xianxia/internal/logger"
	"github.com/tatianab/xianxia/internal/models"
	"github.com/tatianab/xianxia/internal/storage"
	"google.golang.org/api/option"
)

const maxTurns = 10

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	lang := catalog.ParseLang(cfg.Language)
	lg := logger.Setup(cfg.LogLevel, os.Stderr)

	// The narrator.
	narrator, err := engine.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.ModelName, lg)
	if err != nil {
		log.Fatalf("Failed to create narrator: %v", err)
	}
	defer narrator.Close()

	// The player.
	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.ModelName)

	saver := storage.NewSaver(storage.NewMemoryStore(), "", 0, lg)
	defer saver.Close()
	ctrl := game.NewController(narrator, saver, lg)

	idents := catalog.Identities()
	ident := idents[rand.IntN(len(idents))]
	name := askPlayer(ctx, playerModel, "You are about to play a xianxia cultivation novel. Invent a short Daoist name for your character. Return ONLY the name.", "Wei Lin")

	fmt.Printf("--- %s, %s ---\n", name, ident.DisplayName(lang))
	if _, err := ctrl.StartSession(ctx, name, ident, lang); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	printTurn(ctrl.Snapshot())

	for turn := 1; turn <= maxTurns && ctrl.Status() == game.InProgress; turn++ {
		s := ctrl.Snapshot()
		choice := pickChoice(ctx, playerModel, s)
		fmt.Printf("--- Turn %d: %s ---\n", turn, choice.Text)

		if !ctrl.SubmitChoice(ctx, choice) {
			log.Fatalf("Choice %q was rejected", choice.ID)
		}
		printTurn(ctrl.Snapshot())
	}

	if ctrl.Status() == game.GameOver {
		fmt.Println("Game Ended: the thread of fate is cut.")
	}
}

func printTurn(s models.Session) {
	if len(s.Log) > 0 {
		fmt.Println(s.Log[len(s.Log)-1].Text)
	}
	p := s.Player
	fmt.Printf("Stats: HP=%d/%d Qi=%d/%d Karma=%d Gold=%d Realm=%s Root=%s Phase=%s Location=%s Inventory=%v\n\n",
		p.HP, p.MaxHP, p.Qi, p.MaxQi, p.Karma, p.Gold, p.Realm, p.SpiritRoot, p.Phase, p.Location, p.Inventory)
}

func pickChoice(ctx context.Context, model *genai.GenerativeModel, s models.Session) models.Choice {
	if len(s.Choices) == 1 {
		return s.Choices[0]
	}

	var story, options strings.Builder
	for _, entry := range s.RecentLog(engine.HistoryWindow) {
		fmt.Fprintf(&story, "%s: %s\n", strings.ToUpper(string(entry.Role)), entry.Text)
	}
	for i, c := range s.Choices {
		fmt.Fprintf(&options, "%d. %s\n", i+1, c.Text)
	}

	prompt := fmt.Sprintf(`You are playing a xianxia cultivation novel as %s.
Realm: %s, HP: %d/%d, Karma: %d

Recent story:
%s
Options:
%s
Which option do you take? Return ONLY its number.`,
		s.Player.Name, s.Player.Realm, s.Player.HP, s.Player.MaxHP, s.Player.Karma,
		story.String(), options.String())

	n, err := strconv.Atoi(askPlayer(ctx, model, prompt, "1"))
	if err != nil || n < 1 || n > len(s.Choices) {
		return s.Choices[0]
	}
	return s.Choices[n-1]
}

func askPlayer(ctx context.Context, model *genai.GenerativeModel, prompt, fallback string) string {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fallback
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fallback
	}
	out := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if out == "" {
		return fallback
	}
	return out
}
