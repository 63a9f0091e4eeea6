// voicechat - talk to a chat model by typing or speaking, and hear replies
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-voicechat/internal/app"
	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/internal/log"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: ./config.yaml or ~/.config/voicechat)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	provider := flag.String("tts", "", "TTS provider: elevenlabs, speechify, speechify-v1, google, google-cloud, openai, mock")
	voice := flag.String("voice", "", "Preferred voice display name")
	webEnabled := flag.Bool("web", false, "Serve the HTTP API and event stream")
	webAddr := flag.String("addr", "", "Web listen address (default from config)")
	noPlay := flag.Bool("no-play", false, "Do not play synthesized replies locally")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	if *debug {
		cfg.Log.Level = "debug"
	}
	if *provider != "" {
		cfg.TTS.Provider = *provider
	}
	if *voice != "" {
		cfg.TTS.Voice = *voice
	}
	if *webEnabled {
		cfg.Web.Enabled = true
	}
	if *webAddr != "" {
		cfg.Web.Addr = *webAddr
	}
	if *noPlay {
		cfg.Audio.Play = false
	}

	log.InitWithOptions(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := log.L()

	res, err := app.Build(cfg, logger, app.Overrides{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("cleanup", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if res.Web != nil {
		go func() {
			if err := res.Web.Run(ctx); err != nil {
				logger.Error("web server stopped", "error", err)
				cancel()
			}
		}()
		fmt.Printf("🌐 Web API: http://localhost%s\n", cfg.Web.Addr)
	}

	r := newREPL(res.Orchestrator, os.Stdin, os.Stdout)
	if err := r.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("👋 Goodbye!")
}
