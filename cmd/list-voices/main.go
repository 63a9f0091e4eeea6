// Command list-voices prints the voice catalog of a TTS provider.
//
// Usage:
//
//	ELEVENLABS_API_KEY=... go run ./cmd/list-voices/
//	go run ./cmd/list-voices/ -provider google
//	go run ./cmd/list-voices/ -provider speechify -find <voice-id>
//
// Flags:
//
//	-provider   Provider name (default from config)
//	-find       Print only the voice with this ID
//	-timeout    Request timeout (default: 30s)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/teslashibe/go-voicechat/internal/app"
	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/internal/log"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

var (
	configPath = flag.String("config", "", "Path to config.yaml")
	provider   = flag.String("provider", "", "Provider: elevenlabs, speechify, speechify-v1, google, google-cloud, openai")
	findID     = flag.String("find", "", "Print only the voice with this ID")
	timeout    = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.TTS.Provider = *provider
	}
	cfg.TTS.Fallbacks = nil
	cfg.Web.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Audio.Backend = "mock"

	log.InitWithOptions(log.Options{Level: "warn", Format: cfg.Log.Format})
	res, err := app.Build(cfg, log.L(), app.Overrides{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	defer res.Cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, *timeout)
	defer cancel()

	catalog, err := res.Session.ListVoices(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ list voices for %s: %v\n", res.Session.ProviderName(), err)
		os.Exit(1)
	}

	if err := printCatalog(os.Stdout, res.Session.ProviderName(), catalog, *findID); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// printCatalog writes a name/ID table, or just the match for id.
func printCatalog(w io.Writer, provider string, catalog tts.Catalog, id string) error {
	if id != "" {
		name, ok := catalog.FindID(id)
		if !ok {
			return fmt.Errorf("%w: no voice with ID %q on %s", tts.ErrVoiceNotFound, id, provider)
		}
		fmt.Fprintf(w, "%s\t%s\n", name, id)
		return nil
	}

	fmt.Fprintf(w, "🔊 %s: %d voices\n", provider, len(catalog))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tLANGUAGE")
	for _, name := range catalog.Names() {
		v := catalog[name]
		lang := v.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, v.ID, lang)
	}
	return tw.Flush()
}
