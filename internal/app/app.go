// Package app wires the wrapper together: configuration, plugins,
// history, the listing pipeline, the PTY session and the engine.
package app

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"dais/internal/analyze"
	"dais/internal/config"
	"dais/internal/engine"
	"dais/internal/history"
	"dais/internal/listing"
	"dais/internal/plugins"
	"dais/internal/pool"
	"dais/internal/session"
	"dais/internal/system"
	appver "dais/internal/version"
)

// Start runs a full wrapped shell session and blocks until it ends.
func Start() error {
	cfg, err := config.Load()
	if err != nil {
		system.Logger.Warn("config load failed, using defaults", "err", err)
	}

	histPath, err := config.HistoryPath()
	if err != nil {
		system.Logger.Warn("history path unavailable", "err", err)
	}
	hist, err := history.Load(histPath, cfg.HistorySize)
	if err != nil {
		system.Logger.Warn("history load failed, starting empty", "err", err)
	}

	var host *plugins.Host
	if dir, derr := config.PluginDir(); derr == nil {
		host = plugins.Load(dir, func(msg string) {
			system.Logger.Info("plugin", "msg", msg)
		})
		defer host.Close()
		if werr := host.Watch(); werr != nil {
			system.Logger.Warn("plugin watcher disabled", "err", werr)
		}
	}

	workers := pool.New(pool.DefaultSize())
	analyzer := analyze.New(cfg.TextExtensions, cfg.DataExtensions)
	renderer := listing.NewRenderer(cfg, analyzer, workers)

	banner(host)

	sess, err := session.Start()
	if err != nil {
		return err
	}
	defer sess.Stop()

	var hooks engine.Hooks
	if host != nil {
		hooks = host
	}
	eng := engine.New(cfg, sess, renderer, hist, hooks)
	runErr := eng.Run()

	sess.Stop()
	sess.Wait()
	fmt.Print("\r\nSession ended.\r\n")
	return runErr
}

// Main is a helper to use as entry-point from cmd.
func Main() {
	if err := Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// banner prints the startup line before the terminal goes raw.
func banner(host *plugins.Host) {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := title.Render("dais "+appver.AppVersion) + dim.Render("  wrapping "+shellName()+"  (:help for commands)")
	if host != nil && host.Count() > 0 {
		line += dim.Render(fmt.Sprintf("  [%d plugins]", host.Count()))
	}
	fmt.Println(line)
}

func shellName() string {
	sh, _ := session.Shell()
	return system.Basename(sh)
}
