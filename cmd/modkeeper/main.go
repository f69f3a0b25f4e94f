package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/modkeeper/modkeeper/internal/config"
	"github.com/modkeeper/modkeeper/internal/crawler"
	"github.com/modkeeper/modkeeper/internal/manager"
	"github.com/modkeeper/modkeeper/internal/model"
	"github.com/modkeeper/modkeeper/internal/registry"
	"github.com/modkeeper/modkeeper/internal/webclient"
	"github.com/modkeeper/modkeeper/internal/workflow"
)

// moduleManagerURL is the page for the built-in Module Manager mod,
// which is seeded into every registry and cannot be deleted.
const moduleManagerURL = "https://github.com/sarbian/ModuleManager"

func main() {
	var (
		addFlag       = flag.String("add", "", "Mod page URL to add or update")
		updateAllFlag = flag.Bool("update-all", false, "Check every mod and install available updates")
		checkFlag     = flag.Bool("check", false, "Check every mod for updates without installing")
		listFlag      = flag.Bool("list", false, "List registered mods")
		toggleFlag    = flag.String("toggle", "", "Mod id to enable or disable")
		deleteFlag    = flag.String("delete", "", "Mod id to delete")
		exportFlag    = flag.String("export", "", "Write enabled mods to this file")
		importFlag    = flag.String("import", "", "Add every mod listed in this file")
		gameDataFlag  = flag.String("game-data", "", "Game data directory (overrides config)")
		configFlag    = flag.String("config", "", "Path to config file")
		verboseFlag   = flag.Bool("verbose", false, "Show debug output")
	)

	flag.Parse()

	logger := log.New(os.Stderr)
	if *verboseFlag {
		logger.SetLevel(log.DebugLevel)
	}

	settings, err := loadSettings(*configFlag)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}
	if *gameDataFlag != "" {
		settings.GameDataPath = *gameDataFlag
	}
	if err := settings.EnsureDirs(); err != nil {
		logger.Fatal("creating cache directories", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	client := webclient.NewClient()
	factory := crawler.NewFactory(
		&crawler.WebLoader{Client: client},
		&crawler.ConsoleAssetSelector{In: os.Stdin, Out: os.Stderr},
	)
	engine := workflow.NewEngine(settings.NumConcurrentWorkflows, logger)
	reg := registry.New(settings.RegistryPath(), logger)
	mgr := manager.New(settings, factory, engine, reg, client, logger)

	if err := reg.EnsureBuiltIn(model.Mod{
		ID:      model.IDFromURL(moduleManagerURL),
		Name:    "Module Manager",
		PageURL: moduleManagerURL,
	}); err != nil {
		logger.Fatal("seeding built-in mods", "err", err)
	}

	engine.AddListener(func(ev workflow.Event) {
		switch ev.Type {
		case workflow.TaskStarted:
			logger.Info("task started", "workflow", ev.WorkflowName, "task", ev.TaskName)
		case workflow.WorkflowCompleted:
			fmt.Printf("✓ %s\n", ev.WorkflowName)
		case workflow.WorkflowFailed:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", ev.WorkflowName, ev.Err)
		}
	})

	if settings.AutoCheckForUpdates && !*checkFlag && !*updateAllFlag {
		reportChecks(ctx, mgr, reg, logger)
	}

	var runErr error
	switch {
	case *addFlag != "":
		runErr = mgr.AddOrUpdateMod(ctx, *addFlag)

	case *updateAllFlag:
		_, runErr = mgr.UpdateAllMods(ctx)

	case *checkFlag:
		reportChecks(ctx, mgr, reg, logger)

	case *listFlag:
		runErr = listMods(reg)

	case *toggleFlag != "":
		runErr = toggleMod(ctx, mgr, reg, *toggleFlag)

	case *deleteFlag != "":
		runErr = deleteMod(ctx, mgr, reg, *deleteFlag)

	case *exportFlag != "":
		runErr = mgr.ExportEnabled(*exportFlag)
		if runErr == nil {
			fmt.Printf("Exported enabled mods to %s\n", *exportFlag)
		}

	case *importFlag != "":
		runErr = mgr.ImportMods(ctx, *importFlag)

	default:
		usage()
		os.Exit(1)
	}

	engine.Wait()

	if runErr != nil {
		logger.Error("command failed", "err", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Modkeeper - keep your game mods up to date")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  modkeeper -add <URL>")
	fmt.Println("  modkeeper -update-all | -check | -list")
	fmt.Println("  modkeeper -toggle <id> | -delete <id>")
	fmt.Println("  modkeeper -export <file> | -import <file>")
	fmt.Println()
	fmt.Printf("Supported hosts: %v (other hosts use a best-effort crawler)\n", crawler.AcceptedHosts())
	fmt.Println()
	fmt.Println("For interactive mode, use: modkeeper-tui")
	fmt.Println()
	flag.PrintDefaults()
}

func loadSettings(path string) (*config.Settings, error) {
	if path != "" {
		return config.Load(path)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config.DefaultSettings(), nil
	}
	return config.Load(filepath.Join(homeDir, ".modkeeper", "config.json"))
}

func listMods(reg *registry.Registry) error {
	mods, err := reg.GetAll()
	if err != nil {
		return err
	}
	if len(mods) == 0 {
		fmt.Println("No mods registered. Add one with -add <URL>.")
		return nil
	}

	for _, mod := range mods {
		state := "disabled"
		if mod.Enabled {
			state = "enabled"
		}
		suffix := ""
		if mod.BuiltIn {
			suffix = " (built-in)"
		}
		fmt.Printf("%-40s %-10s %-9s %s%s\n", mod.ID, mod.Version.String(), state, mod.Name, suffix)
	}
	return nil
}

func reportChecks(ctx context.Context, mgr *manager.Manager, reg *registry.Registry, logger *log.Logger) {
	mods, err := reg.GetAll()
	if err != nil {
		logger.Error("reading registry", "err", err)
		return
	}

	checks, err := mgr.CheckForUpdates(ctx, mods)
	for _, check := range checks {
		switch check.Ordering {
		case model.OrderingNewer:
			fmt.Printf("↑ %s has an update available\n", check.Mod.Name)
		case model.OrderingUnknown:
			fmt.Printf("? %s version could not be compared\n", check.Mod.Name)
		}
	}
	if err != nil {
		logger.Warn("some update checks failed", "err", err)
	}
}

func toggleMod(ctx context.Context, mgr *manager.Manager, reg *registry.Registry, id string) error {
	mod, ok, err := reg.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown mod id %q; use -list to see registered mods", id)
	}

	if err := mgr.ToggleEnabled(ctx, mod); err != nil {
		return err
	}

	mod, _, _ = reg.Get(id)
	state := "disabled"
	if mod.Enabled {
		state = "enabled"
	}
	fmt.Printf("%s is now %s\n", mod.Name, state)
	return nil
}

func deleteMod(ctx context.Context, mgr *manager.Manager, reg *registry.Registry, id string) error {
	mod, ok, err := reg.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown mod id %q; use -list to see registered mods", id)
	}

	if err := mgr.DeleteMod(ctx, mod); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", mod.Name)
	return nil
}
