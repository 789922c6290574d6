package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/compileorch/internal/compile"
	"github.com/conneroisu/compileorch/internal/config"
	"github.com/conneroisu/compileorch/internal/di"
	fakeengine "github.com/conneroisu/compileorch/internal/engine/fake"
	"github.com/conneroisu/compileorch/internal/problems"
	"github.com/conneroisu/compileorch/internal/reporter"
)

var (
	compileProject      string
	compileTwice        bool
	compileWatchOrphans bool
)

var compileCmd = &cobra.Command{
	Use:     "compile",
	Aliases: []string{"c"},
	Short:   "Run one (or two) demo compiles against a fixture project using the fake engine",
	Long: `compile wires internal/di's container, stages a fixture project under a
temporary output root, and drives internal/compile.Orchestrator through the
in-memory fake engine (internal/engine/fake). Pass --twice to immediately
recompile the same inputs and observe the no-op fast path.

Examples:
  compileorchd compile
  compileorchd compile --project demo --twice`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVar(&compileProject, "project", "demo", "fixture project name")
	compileCmd.Flags().BoolVar(&compileTwice, "twice", false, "recompile the same inputs immediately afterward")
	compileCmd.Flags().BoolVar(&compileWatchOrphans, "watch-orphans", false, "run the orphan sweeper alongside the demo compile")
}

func fixtureSources() []fakeengine.Source {
	return []fakeengine.Source{
		{Path: "Foo.scala", Hash: "h1"},
		{Path: "Bar.scala", Hash: "h2"},
		{
			Path: "Deprecated.scala",
			Hash: "h3",
			Problems: []problems.Problem{
				{Phase: "typer", File: "Deprecated.scala", Line: 1, Message: "deprecated API", Severity: problems.SeverityWarning},
			},
		},
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	out, err := os.MkdirTemp("", "compileorchd-"+compileProject+"-")
	if err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	defer os.RemoveAll(out)

	cfg.OutRoot = out
	if compileWatchOrphans {
		cfg.Orphan.Enabled = true
	}

	container := di.New(cfg)
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: container shutdown: %v\n", err)
		}
	}()

	logger, err := container.Logger()
	if err != nil {
		return fmt.Errorf("resolve logger: %w", err)
	}

	orchestrator, err := container.Orchestrator()
	if err != nil {
		return fmt.Errorf("resolve orchestrator: %w", err)
	}

	if compileWatchOrphans {
		sweeper, err := container.Orphan()
		if err != nil {
			return fmt.Errorf("resolve orphan sweeper: %w", err)
		}
		if sweeper != nil {
			watchCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go sweeper.Start(watchCtx)
			fmt.Println("orphan sweeper watching", filepath.Join(out, "bloop-internal-classes"))
		}
	}

	fmt.Printf("project %s: staging output under %s\n", compileProject, out)

	sources := fixtureSources()
	layout := compile.NewPathLayout(out, filepath.Join(out, "external"), "")
	req := &compile.Request{
		Project:       compileProject,
		Sources:       sourcePaths(sources),
		Classpath:     []string{"/lib/scala-library.jar"},
		BaseDirectory: out,
		Layout:        layout,
		Reporter:      reporter.NewConsole(logger),
		Logger:        logger,
		Engine:        fakeengine.New(sources),
	}

	result, err := orchestrator.Compile(context.Background(), req)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	printResult("first", result)

	if result.BackgroundTasks != nil {
		clientDir := filepath.Join(out, "client")
		if err := result.BackgroundTasks.Trigger(context.Background(), clientDir, req.Reporter, nil, logger); err != nil {
			return fmt.Errorf("background tasks: %w", err)
		}
	}

	if !compileTwice || result.Products == nil {
		return nil
	}

	layout2 := compile.NewPathLayout(out, filepath.Join(out, "external"), result.Products.NewClassesDir)
	req2 := &compile.Request{
		Project:                compileProject,
		Sources:                sourcePaths(sources),
		Classpath:              []string{"/lib/scala-library.jar"},
		BaseDirectory:          out,
		Layout:                 layout2,
		PreviousResult:         result,
		PreviousCompilerResult: result.Products.FutureRun,
		Reporter:               reporter.NewConsole(logger),
		Logger:                 logger,
		Engine:                 fakeengine.New(sources),
	}

	result2, err := orchestrator.Compile(context.Background(), req2)
	if err != nil {
		return fmt.Errorf("recompile: %w", err)
	}
	printResult("second", result2)

	return nil
}

func sourcePaths(sources []fakeengine.Source) []string {
	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = s.Path
	}
	return paths
}

func printResult(label string, result *compile.Result) {
	fmt.Printf("[%s] kind=%v no-op=%v fatal-warnings=%v\n", label, result.Kind, result.IsNoOp, result.ReportedFatalWarnings)
	if result.Products != nil {
		fmt.Printf("[%s] new classes dir: %s\n", label, result.Products.NewClassesDir)
		fmt.Printf("[%s] generated: %d files\n", label, len(result.Products.GeneratedRelativeToFile))
	}
	for _, p := range result.ProblemsPerPhase {
		fmt.Printf("[%s] problem: %s:%d %s\n", label, p.File, p.Line, p.Message)
	}
}
