// Package main provides the entry point for the CT Viewer application.
package main

import (
	"flag"
	"log/slog"
	"os"

	"ct-viewer/internal/app"
	"ct-viewer/internal/config"
	"ct-viewer/internal/segment"
	"ct-viewer/internal/version"
	"ct-viewer/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "io.ctviewer.app"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "configuration file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("starting CT Viewer",
		"version", version.Version, "commit", version.GitCommit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "error", err)
		os.Exit(1)
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.ViewerTheme{})

	state := app.NewState(cfg)

	// Pick up a bundled model before the window appears, so segmentation is
	// available immediately when one is installed.
	if path, err := segment.Discover(cfg.ModelDir); err == nil {
		if err := state.LoadModel(path); err != nil {
			slog.Warn("startup model rejected", "path", path, "error", err)
		}
	} else {
		slog.Info("no model found at startup", "dir", cfg.ModelDir, "reason", err)
	}

	win := mainwindow.New(fyneApp, state)

	watcher, err := app.NewModelWatcher(cfg.ModelDir)
	if err != nil {
		slog.Warn("model watcher unavailable", "dir", cfg.ModelDir, "error", err)
	} else {
		watcher.OnChange(func(path string) {
			if err := state.LoadModel(path); err != nil {
				slog.Warn("watched model rejected", "path", path, "error", err)
			}
		})
		watcher.Start()
	}

	// Open a DICOM folder given on the command line
	if args := flag.Args(); len(args) > 0 {
		win.ScanFolder(args[0])
	}

	win.SetOnClosed(func() {
		win.SavePreferences()
		if watcher != nil {
			watcher.Stop()
		}
		state.Shutdown()
	})

	win.ShowAndRun()
}
