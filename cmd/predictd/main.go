/*
Package main implements the predict daemon: the MessagePack IPC server for
next-word and current-word prediction.

predictd loads a static n-gram trie, a word dictionary and (optionally) a
persisted dynamic trie and user overlay from disk, then serves predict/train
requests over stdin/stdout until its client disconnects.

# Data files

predictd expects the paths configured in config.toml's [paths] section
(static_trie_path, dictionary_path, dynamic_trie_path, user_overlay_path). A
missing dynamic trie is not fatal: predictd starts with an empty dynamic
model. A user overlay that cannot be loaded is skipped with a warning.

# Config

Runtime configuration is managed via a config.toml file; a default one is
created automatically if one does not exist (pkg/config.InitConfig).
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/assistext/predict/internal/appwire"
	"github.com/assistext/predict/pkg/config"
	"github.com/assistext/predict/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0"
	AppName = "predictd"
	gh      = "https://github.com/assistext/predict"
)

func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "config.toml", "Path to config.toml file")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	p, err := appwire.BuildPredictor(cfg)
	if err != nil {
		log.Fatalf("failed to build predictor: %v", err)
	}
	defer p.Dispose()

	srv := server.NewServer(p, cfg, *configFile)
	showStartupInfo(*configFile)

	if err := srv.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportCaller: false, ReportTimestamp: false, Prefix: ""})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print(fmt.Sprintf("[%s] Next-word and current-word prediction daemon", AppName))
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use --help to see available options")
	logger.Print("")
	logger.Print("Find out more at", "gh", gh)
}

func showStartupInfo(configFile string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("=============")
	println(" " + AppName + " ")
	println("=============")
	log.Infof("version: %s", Version)
	log.Infof("process id: [ %d ]", pid)
	log.Infof("config: %s", configFile)
	log.Info("status: ready")
	println("=============")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
