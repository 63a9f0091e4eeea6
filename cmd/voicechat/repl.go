package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/pipeline"
)

const helpText = `Commands:
  /record [seconds]      speak for 1-10 seconds (default from config)
  /voices                list voices of the active provider
  /voice <name>          select a voice
  /providers             list providers
  /provider <name>       switch TTS provider
  /key <provider> <key>  set an API key for this session (empty clears it)
  /status                show session state
  /reset                 clear the conversation
  /help                  show this help
  /quit                  exit
Anything else is sent as a message.`

// repl reads commands and messages line by line.
type repl struct {
	orch *pipeline.Orchestrator
	in   io.Reader
	out  io.Writer
}

func newREPL(orch *pipeline.Orchestrator, in io.Reader, out io.Writer) *repl {
	return &repl{orch: orch, in: in, out: out}
}

// Run processes input until EOF, /quit or ctx is canceled.
func (r *repl) Run(ctx context.Context) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
		close(lines)
	}()

	fmt.Fprintln(r.out, "🎙️  Voice chat ready. Type a message or /help.")
	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errCh
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handle executes one line and reports whether to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.printTurn(r.orch.RunText(ctx, line))
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	sess := r.orch.Session()

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(r.out, helpText)

	case "/record":
		var d time.Duration
		if arg != "" {
			secs, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Fprintf(r.out, "❌ invalid duration %q\n", arg)
				return false
			}
			d = time.Duration(secs * float64(time.Second))
		}
		if r.orch.VoiceEnabled() {
			fmt.Fprintln(r.out, "🔴 Recording...")
		}
		r.printTurn(r.orch.RunVoice(ctx, d))

	case "/reset":
		if err := r.orch.Reset(); err != nil {
			r.printErr(err)
			return false
		}
		fmt.Fprintln(r.out, "🧹 Conversation cleared")

	case "/voices":
		catalog, err := sess.ListVoices(ctx)
		if err != nil {
			r.printErr(err)
			return false
		}
		if len(catalog) == 0 {
			fmt.Fprintf(r.out, "No voices available for %s\n", sess.ProviderName())
			return false
		}
		selected := sess.VoiceName()
		for _, name := range catalog.Names() {
			marker := "  "
			if strings.EqualFold(name, selected) {
				marker = "* "
			}
			fmt.Fprintf(r.out, "%s%s\n", marker, name)
		}

	case "/voice":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /voice <name>")
			return false
		}
		voice, err := sess.ResolveVoice(ctx, arg)
		if err != nil {
			r.printErr(err)
			return false
		}
		fmt.Fprintf(r.out, "🗣️  Voice: %s (%s)\n", voice.Name, voice.Provider)

	case "/providers":
		active := sess.ProviderName()
		for _, name := range sess.Providers() {
			marker := "  "
			if name == active {
				marker = "* "
			}
			fmt.Fprintf(r.out, "%s%s\n", marker, name)
		}

	case "/provider":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /provider <name>")
			return false
		}
		if err := sess.SetProvider(arg); err != nil {
			r.printErr(err)
			return false
		}
		fmt.Fprintf(r.out, "🔊 Provider: %s\n", sess.ProviderName())

	case "/key":
		provider, secret, _ := strings.Cut(arg, " ")
		if provider == "" {
			fmt.Fprintln(r.out, "usage: /key <provider> <key>")
			return false
		}
		sess.SetCredential(provider, strings.TrimSpace(secret))
		if sess.HasCredential(provider) {
			fmt.Fprintf(r.out, "🔑 Key set for %s\n", provider)
		} else {
			fmt.Fprintf(r.out, "🔑 Key cleared for %s\n", provider)
		}

	case "/status":
		st := sess.Status()
		fmt.Fprintf(r.out, "Provider: %s\nVoice:    %s\nTurns:    %d\nPolicy:   %s\n",
			st.Provider, orDash(st.VoiceName), st.Turns, st.Policy)
		for _, name := range st.Providers {
			fmt.Fprintf(r.out, "  %-14s key=%v\n", name, st.Credentials[name])
		}

	default:
		fmt.Fprintf(r.out, "unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (r *repl) printTurn(res *pipeline.Result, err error) {
	if err != nil {
		r.printErr(err)
		return
	}
	if res.Input == pipeline.InputVoice {
		fmt.Fprintf(r.out, "🎤 You: %s\n", res.User.Content)
	}
	fmt.Fprintf(r.out, "🤖 %s\n", res.Assistant.Content)
	for _, w := range res.Warnings {
		fmt.Fprintf(r.out, "⚠️  %s: %v\n", pipeline.Kind(w), w)
	}
	if res.Degraded && len(res.Warnings) == 0 {
		fmt.Fprintf(r.out, "🔇 text only (%s)\n", res.DegradedReason)
	}
	fmt.Fprintf(r.out, "⏱️  %s\n", res.Timings.FormatLatency())
}

func (r *repl) printErr(err error) {
	fmt.Fprintf(r.out, "❌ %s: %v\n", pipeline.Kind(err), err)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
