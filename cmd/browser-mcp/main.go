// Package main runs the browser-mcp server: browser session management and
// outcome-resolving navigation/click tools exposed over MCP stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/demon2036/browser-mcp/pkg/browser"
	"github.com/demon2036/browser-mcp/pkg/config"
	"github.com/demon2036/browser-mcp/pkg/logging"
	"github.com/demon2036/browser-mcp/pkg/search"
	"github.com/demon2036/browser-mcp/pkg/server"
)

const version = "0.1.0"

type cliFlags struct {
	configPath  string
	headed      bool
	maxSessions int
	downloadDir string
	showVersion bool
}

func parseFlags() cliFlags {
	var flags cliFlags
	flag.StringVar(&flags.configPath, "config", "", "path to config file (default ~/.browser-mcp/config.yaml)")
	flag.BoolVar(&flags.headed, "headed", false, "run the browser with a visible window")
	flag.IntVar(&flags.maxSessions, "max-sessions", 0, "override the session store capacity")
	flag.StringVar(&flags.downloadDir, "download-dir", "", "override the download directory")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return flags
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Printf("browser-mcp v%s\n", version)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "browser-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(flags cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.headed {
		cfg.Browser.Headless = false
	}
	if flags.maxSessions > 0 {
		cfg.Browser.MaxSessions = flags.maxSessions
	}
	if flags.downloadDir != "" {
		cfg.Browser.DownloadDir = flags.downloadDir
	}

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "browser-mcp: file logging unavailable: %v\n", logErr)
	}
	defer logger.Close()
	logger.Infof("starting browser-mcp v%s (run %s)", version, logger.RunID())

	// Signal handling for graceful shutdown: sessions and the browser
	// process must be released before exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infof("received %s, shutting down", sig)
		cancel()
	}()

	engine := browser.NewEngine(browser.EngineOptions{
		Headless: cfg.Browser.Headless,
		Viewport: browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
	})
	manager := browser.NewManager(engine, browser.ManagerOptions{
		MaxSessions: cfg.Browser.MaxSessions,
		DownloadDir: cfg.Browser.DownloadDir,
	})
	defer manager.Close()

	var searcher *search.Client
	if cfg.Search.SearxURL != "" || cfg.Search.TavilyAPIKey != "" {
		searcher = search.NewClient(search.Options{
			SearxURL:     cfg.Search.SearxURL,
			TavilyAPIKey: cfg.Search.TavilyAPIKey,
		})
	}

	srv := server.New(manager, searcher)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	logger.Infof("shutdown complete")
	return nil
}
