/*
Package main is the terminal chat client.

It registers with the relay under a display name and shows a full-screen chat:
the transcript on the left, who is online on the right, and an input line at
the bottom. Lines starting with a slash are commands:

	/users          list who is online
	/upload <path>  share an image through the relay's media store
	/quit           leave (also Esc or Ctrl+C)
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"livechat/internal/configs"
	"livechat/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "relay websocket URL")
	flag.StringVar(&cfg.Username, "name", cfg.Username, "display name")
	flag.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "outbound and inbound queue size")
	logPath := flag.String("log", "", "append JSON logs to this file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// the screen belongs to the UI, so logs only go to a file
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logx.InitGlobalLoggerTo(logOut, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, tea.WithAltScreen()); err != nil {
		fmt.Fprintf(os.Stderr, "livechat: %v\n", err)
		os.Exit(1)
	}
}

// run shows the chat UI until the user quits, ctx ends, or the transport
// gives up. Only the last is an error.
func run(ctx context.Context, cfg *configs.ClientConfig, opts ...tea.ProgramOption) error {
	c := newClient(cfg)
	c.start(ctx)
	defer c.close()

	m := newModel(ctx, cfg.ServerURL, cfg.MaxMessageBytes, c.session, c.events, mediaUploader(cfg))
	c.events.notice("joining %s as %s", cfg.ServerURL, c.session.Self())

	opts = append(opts, tea.WithContext(ctx))
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}

	if fm, ok := final.(model); ok && fm.err != nil && !errors.Is(fm.err, context.Canceled) {
		return fm.err
	}
	return nil
}
