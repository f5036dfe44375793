// Command mcpcore runs the MCP core server over stdio or Streamable HTTP.
// Flag layout grounded on cmd/brum/main.go's rootCmd/runApp; the stdio vs.
// hub-mode branch there is this binary's --transport flag.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mcpcore/internal/builtin"
	"github.com/standardbeagle/mcpcore/internal/capabilities/completion"
	"github.com/standardbeagle/mcpcore/internal/capabilities/core"
	"github.com/standardbeagle/mcpcore/internal/capabilities/logging"
	"github.com/standardbeagle/mcpcore/internal/capabilities/prompts"
	"github.com/standardbeagle/mcpcore/internal/capabilities/resources"
	"github.com/standardbeagle/mcpcore/internal/capabilities/tools"
	"github.com/standardbeagle/mcpcore/internal/config"
	"github.com/standardbeagle/mcpcore/internal/dispatch"
	"github.com/standardbeagle/mcpcore/internal/registry"
	"github.com/standardbeagle/mcpcore/internal/transport/httptransport"
	"github.com/standardbeagle/mcpcore/internal/transport/stdio"
	"github.com/standardbeagle/mcpcore/pkg/events"
	"github.com/standardbeagle/mcpcore/pkg/log"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	transportFlag string
	port          int
	logLevel      string
	logJSON       bool
	daemon        bool
)

var rootCmd = &cobra.Command{
	Use:   "mcpcore",
	Short: "A Model Context Protocol core server",
	Long: `mcpcore implements the Model Context Protocol: a JSON-RPC 2.0
dispatch core shared by a stdio transport and a Streamable HTTP transport,
with tools, resources, prompts, logging, and completion capability
managers wired over a process-wide event bus.

Examples:
  mcpcore                      # Serve Streamable HTTP on :3000
  mcpcore --transport stdio    # Serve newline-delimited JSON-RPC on stdio
  mcpcore -p 8080              # Serve Streamable HTTP on :8080`,
	RunE: runServer,
}

func init() {
	rootCmd.Flags().StringVar(&transportFlag, "transport", "http", "Transport to serve: 'stdio' or 'http'")
	rootCmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP transport listen port")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON instead of console format")
	rootCmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "Detach and run in the background")
	rootCmd.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if daemon {
		return daemonize()
	}

	log.Init(log.Config{Level: parseLevel(logLevel), JSON: logJSON, Output: os.Stderr})

	cfg := config.Default()

	bus := events.New()
	coreMgr := core.New(bus, core.ServerInfo{Name: cfg.ServerName, Version: Version})
	toolsMgr := tools.New(bus)
	resourcesMgr := resources.New(bus)
	promptsMgr := prompts.New(bus)
	loggingMgr := logging.New(bus)
	completionMgr := completion.New(nil)

	builtin.RegisterTools(toolsMgr, loggingMgr)
	builtin.RegisterResources(resourcesMgr)
	builtin.RegisterPrompts(promptsMgr)

	reg := registry.New()
	reg.Register(coreMgr)
	reg.Register(toolsMgr)
	reg.Register(resourcesMgr)
	reg.Register(promptsMgr)
	reg.Register(loggingMgr)
	reg.Register(completionMgr)

	processor := dispatch.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch transportFlag {
	case "stdio":
		return runStdio(ctx, processor)
	case "http":
		return runHTTP(ctx, cfg, processor, bus, coreMgr)
	default:
		return fmt.Errorf("unknown transport %q: must be 'stdio' or 'http'", transportFlag)
	}
}

func runStdio(ctx context.Context, processor *dispatch.Processor) error {
	tr := stdio.New(processor, os.Stdin, os.Stdout)

	go func() {
		<-ctx.Done()
		tr.Shutdown(5*time.Second, 50*time.Millisecond)
	}()

	return tr.Run(ctx)
}

func runHTTP(ctx context.Context, cfg config.Config, processor *dispatch.Processor, bus *events.Bus, coreMgr *core.Manager) error {
	srv := httptransport.New(cfg, processor, bus, coreMgr)

	addr := fmt.Sprintf(":%d", port)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil {
			errCh <- err
		}
	}()

	log.WithComponent("mcpcore").Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.WithComponent("mcpcore").Info().Msg("shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout+time.Second)
		defer cancel()
		if !srv.Stop(stopCtx) {
			return fmt.Errorf("graceful shutdown timed out with requests still in flight")
		}
		return nil
	}
}

// daemonize re-execs the current binary with --daemon stripped, detached
// into its own session with stdio redirected to a log file, then returns
// so the parent can exit immediately. There is no supervision afterward:
// the detached process is on its own, matching the spec's "no persisted
// state" stance on process management.
func daemonize() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	logFile, err := os.OpenFile("mcpcore.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer logFile.Close()

	childArgs := make([]string, 0, len(os.Args)-1)
	for _, a := range os.Args[1:] {
		if a == "--daemon" || a == "-d" {
			continue
		}
		childArgs = append(childArgs, a)
	}

	child := exec.Command(self, childArgs...)
	child.Stdin = nil
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}

	fmt.Printf("mcpcore started in background, pid %d, logging to mcpcore.log\n", child.Process.Pid)
	return nil
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
