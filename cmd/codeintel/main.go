// Command codeintel is the CLI entry point over the code-intelligence
// engine: it indexes a project root, answers search queries, runs a
// configured agent through the Orchestrator, and can launch the MCP server
// for editor/assistant integration. Grounded on cmd/lci/main.go
// (urfave/cli/v2 App/Command shape, config-then-indexer construction order,
// signal-driven graceful shutdown for the mcp subcommand), narrowed from
// several dozen subcommands down to the operations named below.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/engine"
	"github.com/standardbeagle/codeintel/internal/ierrors"
	"github.com/standardbeagle/codeintel/internal/mcpserver"
	"github.com/standardbeagle/codeintel/internal/orchestrator"
	"github.com/standardbeagle/codeintel/internal/retrieval"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

func main() {
	app := &cli.App{
		Name:  "codeintel",
		Usage: "Code-intelligence engine: index, search, and agent orchestration over a codebase",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory", Value: "."},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			telemetry.SetOutput(os.Stderr, level)
			return nil
		},
		Commands: []*cli.Command{
			indexCommandDef(),
			searchCommandDef(),
			agentCommandDef(),
			mcpCommandDef(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the engine's shell exit codes: 0 success,
// 2 configuration error, 3 capability-gate denial, 4 resource limit,
// 5 internal error.
func exitCodeFor(err error) int {
	ie, ok := err.(*ierrors.Error)
	if !ok {
		return 5
	}
	switch ie.Kind {
	case ierrors.KindCapabilityDenied:
		return 3
	case ierrors.KindResourceExhausted:
		return 4
	case ierrors.KindParse, ierrors.KindCompaction, ierrors.KindIndex, ierrors.KindNotFound, ierrors.KindTimeout:
		return 2
	default:
		return 5
	}
}

func loadProjectConfig(c *cli.Context) (*config.Config, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, ierrors.New(ierrors.KindInternal, "loadProjectConfig", err)
	}
	cfg, err := config.LoadKDL(root)
	if err != nil {
		return nil, ierrors.New(ierrors.KindInternal, "loadProjectConfig", err).WithRemediation("check .codeintel.kdl syntax")
	}
	if cfg == nil {
		cfg = config.Default(root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, ierrors.New(ierrors.KindInternal, "loadProjectConfig", err)
	}
	return cfg, nil
}

func indexCommandDef() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Ingest every file under root into the in-memory index",
		Action: func(c *cli.Context) error {
			cfg, err := loadProjectConfig(c)
			if err != nil {
				return err
			}
			ix, err := engine.New(cfg)
			if err != nil {
				return ierrors.New(ierrors.KindInternal, "index", err)
			}
			count, err := ix.IndexRoot(cfg.Project.Root)
			if err != nil {
				return ierrors.New(ierrors.KindIndex, "index", err)
			}
			fmt.Printf("indexed %d files under %s\n", count, cfg.Project.Root)
			return nil
		},
	}
}

func searchCommandDef() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the indexed codebase",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Value: "general", Usage: "symbol_exact, symbol_fuzzy, definition, references, full_text, semantic, or general"},
			&cli.StringFlag{Name: "language", Usage: "restrict to this language"},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return ierrors.New(ierrors.KindInternal, "search", fmt.Errorf("usage: codeintel search <query>"))
			}
			cfg, err := loadProjectConfig(c)
			if err != nil {
				return err
			}
			ix, err := engine.New(cfg)
			if err != nil {
				return ierrors.New(ierrors.KindInternal, "search", err)
			}
			if _, err := ix.IndexRoot(cfg.Project.Root); err != nil {
				return ierrors.New(ierrors.KindIndex, "search", err)
			}

			query := retrieval.Query{
				Kind:  retrieval.Kind(c.String("kind")),
				Text:  c.Args().First(),
				Limit: c.Int("limit"),
				Filters: retrieval.Filters{
					Language: types.Language(c.String("language")),
				},
			}
			results := ix.Retrieval().Search(query)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}

func agentCommandDef() *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Run a configured agent through the orchestrator",
		Subcommands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute one agent, defined in .codeintel/agents/<name>.agent.kdl",
				ArgsUsage: "<agent-name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Value: "build", Usage: "plan, review, or build"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return ierrors.New(ierrors.KindInternal, "agent run", fmt.Errorf("usage: codeintel agent run <agent-name>"))
					}
					agentName := c.Args().First()

					cfg, err := loadProjectConfig(c)
					if err != nil {
						return err
					}
					ix, err := engine.New(cfg)
					if err != nil {
						return ierrors.New(ierrors.KindInternal, "agent run", err)
					}
					if _, err := ix.IndexRoot(cfg.Project.Root); err != nil {
						return ierrors.New(ierrors.KindIndex, "agent run", err)
					}

					registry, err := loadAgentRegistry(filepath.Join(cfg.Project.Root, ".codeintel", "agents"))
					if err != nil {
						return ierrors.New(ierrors.KindNotFound, "agent run", err)
					}

					tools := builtinTools(ix)
					orch := orchestrator.New(registry, tools, stubRunner(tools), cfg.Orchestrator)
					_, records, planStatus, err := orch.Execute(c.Context, orchestrator.SingleOf(orchestrator.Step{AgentName: agentName}), types.OperatingMode(c.String("mode")))
					for _, r := range records {
						fmt.Printf("%s: %s (%s)\n", r.AgentName, r.Status, r.End.Sub(r.Start))
						if r.Output != "" {
							fmt.Println(r.Output)
						}
					}
					fmt.Printf("plan status: %s\n", planStatus)
					if err != nil {
						return ierrors.New(ierrors.KindInternal, "agent run", err)
					}
					return nil
				},
			},
		},
	}
}

func mcpCommandDef() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server over stdio for editor/assistant integration",
		Action: func(c *cli.Context) error {
			telemetry.SetMCPMode(true)

			cfg, err := loadProjectConfig(c)
			if err != nil {
				return err
			}
			ix, err := engine.New(cfg)
			if err != nil {
				return ierrors.New(ierrors.KindInternal, "mcp", err)
			}
			if _, err := ix.IndexRoot(cfg.Project.Root); err != nil {
				return ierrors.New(ierrors.KindIndex, "mcp", err)
			}

			registry, err := loadAgentRegistry(filepath.Join(cfg.Project.Root, ".codeintel", "agents"))
			if err != nil {
				registry = orchestrator.NewRegistry()
			}
			tools := builtinTools(ix)
			orch := orchestrator.New(registry, tools, stubRunner(tools), cfg.Orchestrator)

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
					return ierrors.New(ierrors.KindInternal, "mcp", err)
				}
				return nil
			case <-sigCh:
				cancel()
				select {
				case <-errCh:
				case <-time.After(2 * time.Second):
				}
				return nil
			}
		},
	}
}
