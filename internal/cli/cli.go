// Package cli wires the pomidoro subcommands: running the daemon, sending it
// single commands, and the live watch view. Exact exit codes and messages
// live here, on top of the core client/server packages.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pomidoro/pomidoro/internal/client"
	"github.com/pomidoro/pomidoro/internal/config"
	"github.com/pomidoro/pomidoro/internal/endpoint"
	"github.com/pomidoro/pomidoro/internal/logger"
	"github.com/pomidoro/pomidoro/internal/protocol"
	"github.com/pomidoro/pomidoro/internal/server"
	"github.com/pomidoro/pomidoro/internal/tui"
)

// Options holds flags shared by all subcommands.
type Options struct {
	ConfigPath string
	ServerID   int
	JSONOutput bool
	NoColor    bool
}

const usageText = `Usage: pomidoro <command> [flags]

Commands:
  serve      run the timer daemon
  start      begin a work phase
  stop       reset the timer to idle
  status     show the current phase and remaining time
  toggle     pause or resume the current phase
  skip       end the current phase and move on
  stats      show session history totals
  shutdown   stop the daemon
  watch      live status view

Flags:
  --config PATH   config file (default ~/.config/pomidoro/config.json)
  --id N          server id, selects server<N>.sock (default 0)
  --json          print raw JSON responses
  --no-color      disable styled output
`

// Run dispatches a subcommand and returns the process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		fmt.Print(usageText)
		return 0
	}

	opts := &Options{}
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.StringVar(&opts.ConfigPath, "config", "", "config file path")
	fs.IntVar(&opts.ServerID, "id", 0, "server id")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print raw JSON responses")
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable styled output")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.GetConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logger.Global().Close()

	switch command {
	case "serve":
		return runServe(cfg, configPath, opts)
	case "watch":
		return runWatch(cfg, opts)
	case "start", "stop", "status", "toggle", "skip", "stats", "shutdown":
		return runSend(cfg, protocol.Command(command), opts)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usageText)
		return 2
	}
}

func runServe(cfg *config.Config, configPath string, opts *Options) int {
	username, err := endpoint.CurrentUser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	srv, err := server.New(cfg, username, opts.ServerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.Watch(ctx, configPath, srv.ApplyConfig); err != nil {
		logger.Warn("Config reload disabled: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newClient(cfg *config.Config, opts *Options) (*client.Client, error) {
	username, err := endpoint.CurrentUser()
	if err != nil {
		return nil, err
	}
	path := endpoint.ResolvePath(cfg.SocketDir, username, opts.ServerID)
	return client.New(path, cfg.ResponseTimeout()), nil
}

func runSend(cfg *config.Config, cmd protocol.Command, opts *Options) int {
	c, err := newClient(cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	resp, err := c.Send(cmd)
	if err != nil {
		return reportClientError(err, c.SocketPath(), cfg)
	}

	if resp.Error != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeRejection(resp.Error))
		return 1
	}

	printResponse(cfg, cmd, resp, opts)
	return 0
}

func runWatch(cfg *config.Config, opts *Options) int {
	c, err := newClient(cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := tui.Run(cfg, c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// reportClientError prints a message that keeps the failure kinds apart:
// "no server" reads differently from "server present but unresponsive".
func reportClientError(err error, socketPath string, cfg *config.Config) int {
	var cerr *client.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case client.KindUnreachable:
			fmt.Fprintf(os.Stderr, "Error: no pomidoro server at %s (start one with 'pomidoro serve')\n", socketPath)
		case client.KindTimeout:
			fmt.Fprintf(os.Stderr, "Error: server did not respond within %s\n", cfg.ResponseTimeout())
		case client.KindDecode:
			fmt.Fprintf(os.Stderr, "Error: undecodable response from server: %v\n", cerr.Err)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func describeRejection(info *protocol.ErrorInfo) string {
	switch info.Kind {
	case protocol.ErrAlreadyRunning:
		return "a phase is already running"
	case protocol.ErrNotRunning:
		return "no phase is running"
	case protocol.ErrMalformedRequest:
		return "server rejected the request as malformed"
	default:
		if info.Message != "" {
			return fmt.Sprintf("%s: %s", info.Kind, info.Message)
		}
		return string(info.Kind)
	}
}
