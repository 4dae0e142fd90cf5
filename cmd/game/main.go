package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/config"
	"github.com/tatianab/xianxia/internal/engine"
	"github.com/tatianab/xianxia/internal/game"
	"github.com/tatianab/xianxia/internal/logger"
	"github.com/tatianab/xianxia/internal/models"
	"github.com/tatianab/xianxia/internal/storage"
	"github.com/tatianab/xianxia/internal/tui"
)

func main() {
	listSlots := flag.Bool("list-slots", false, "list save slots in SAVE_DIR and exit")
	flag.Parse()

	if err := run(*listSlots); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(listSlots bool) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if listSlots {
		slots, err := storage.NewFileStore(cfg.SaveDir).ListSlots(models.SaveKeyPrefix)
		if err != nil {
			return fmt.Errorf("list slots: %w", err)
		}
		for _, slot := range slots {
			fmt.Println(slot)
		}
		return nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.Setup(cfg.LogLevel, logFile)

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open save store: %w", err)
	}
	defer store.Close()

	saver := storage.NewSaver(store, cfg.SaveSlot, cfg.SaveDebounce, log)
	defer func() {
		if err := saver.Flush(ctx); err != nil {
			log.Error("Failed to flush save", "error", err)
		}
		saver.Close()
	}()

	eng, err := engine.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.ModelName, log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close()

	ctrl := game.NewController(eng, saver, log)
	if ctrl.LoadPersistedSession(ctx) {
		log.Info("Resuming saved game", "key", saver.Key())
	}

	log.Info("Starting", "backend", cfg.SaveBackend, "model", cfg.ModelName)
	if err := tui.Run(ctrl, catalog.ParseLang(cfg.Language)); err != nil {
		log.Error("TUI exited", "error", err)
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
