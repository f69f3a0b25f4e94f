package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/modkeeper/modkeeper/internal/config"
	"github.com/modkeeper/modkeeper/internal/crawler"
	"github.com/modkeeper/modkeeper/internal/manager"
	"github.com/modkeeper/modkeeper/internal/registry"
	"github.com/modkeeper/modkeeper/internal/tui"
	"github.com/modkeeper/modkeeper/internal/webclient"
	"github.com/modkeeper/modkeeper/internal/workflow"
)

func main() {
	homeDir, _ := os.UserHomeDir()
	settings, err := config.Load(filepath.Join(homeDir, ".modkeeper", "config.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := settings.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache directories: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to Bubble Tea; keep log output away from it.
	logger := log.New(os.Stderr)
	logger.SetLevel(log.ErrorLevel)

	client := webclient.NewClient()
	factory := crawler.NewFactory(&crawler.WebLoader{Client: client}, crawler.FirstAssetSelector{})
	engine := workflow.NewEngine(settings.NumConcurrentWorkflows, logger)
	reg := registry.New(settings.RegistryPath(), logger)
	mgr := manager.New(settings, factory, engine, reg, client, logger)

	if err := tui.Run(settings, mgr, engine, reg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	engine.Wait()
}
