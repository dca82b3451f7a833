// Command codeintel-mcp runs the code-intelligence engine as a standalone
// MCP server over stdio, for editors/assistants that spawn one process per
// project rather than shelling out to the codeintel CLI's mcp subcommand.
// Grounded on cmd/lci/main.go mcpCommand (config-then-indexer
// construction, signal-driven graceful shutdown), minus its separate
// unix-socket index-server daemon, which is out of scope here: one process
// owns one in-memory index for its lifetime.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/engine"
	"github.com/standardbeagle/codeintel/internal/mcpserver"
	"github.com/standardbeagle/codeintel/internal/orchestrator"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

func main() {
	root := flag.String("root", ".", "project root directory to index")
	flag.Parse()

	telemetry.SetOutput(os.Stderr, slog.LevelInfo)
	telemetry.SetMCPMode(true)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codeintel-mcp: resolve root:", err)
		os.Exit(5)
	}

	cfg, err := config.LoadKDL(absRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codeintel-mcp: load config:", err)
		os.Exit(2)
	}
	if cfg == nil {
		cfg = config.Default(absRoot)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "codeintel-mcp: invalid config:", err)
		os.Exit(2)
	}

	ix, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codeintel-mcp: build engine:", err)
		os.Exit(5)
	}
	if _, err := ix.IndexRoot(cfg.Project.Root); err != nil {
		fmt.Fprintln(os.Stderr, "codeintel-mcp: index root:", err)
		os.Exit(5)
	}

	registry := orchestrator.NewRegistry()
	runner := func(ctx context.Context, desc *orchestrator.AgentDescriptor, shared *orchestrator.SharedContext, step orchestrator.Step, checkTool func(string) error) (string, error) {
		return "", fmt.Errorf("no agents configured under .codeintel/agents")
	}
	orch := orchestrator.New(registry, orchestrator.NewToolRegistry(), runner, cfg.Orchestrator)

	srv := mcpserver.New(ix, orch, registry, types.ModeBuild)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(os.Stderr, "codeintel-mcp: server error:", err)
			os.Exit(5)
		}
	case <-sigCh:
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
	}
}
