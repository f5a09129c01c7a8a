package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/config"
	"github.com/statkit/statbridge/engine"
	"github.com/statkit/statbridge/history"
	"github.com/statkit/statbridge/process"
	"github.com/statkit/statbridge/telemetry"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "Path to statbridge.yaml")
		engineName  = flag.String("engine", "python", "Engine to run against (python, r, or a configured name)")
		scriptFile  = flag.String("script", "", "Script file to execute ('-' reads stdin)")
		dataJSON    = flag.String("data", "", "Inline JSON object of named data values")
		dataFile    = flag.String("data-file", "", "JSON file of named data values")
		timeout     = flag.Duration("timeout", 0, "Per-run timeout override (e.g. 45s)")
		recent      = flag.Int("recent", 0, "Print the N most recent history records and exit")
		interactive = flag.Bool("i", false, "Interactive console with TUI")
	)
	flag.Parse()

	if err := run(*cfgPath, *engineName, *scriptFile, *dataJSON, *dataFile, *timeout, *recent, *interactive); err != nil {
		if errors.Is(err, errScriptFailed) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// errScriptFailed marks a run where the bridge worked but the script
// raised; the details have already been printed.
var errScriptFailed = errors.New("script failed")

func run(cfgPath, engineName, scriptFile, dataJSON, dataFile string, timeout time.Duration, recent int, interactive bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	engine.SetLogger(logger)
	process.SetLogger(logger)

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if recent > 0 {
		return printRecent(store, recent)
	}

	if cfg.Metrics.Port > 0 {
		telemetry.Expose(cfg.Metrics.Port)
	}

	if !interactive && scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -script <file.py|file.R|-> [-engine python|r] [-data '{...}']")
		fmt.Fprintln(os.Stderr, "       run -recent 20")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive console)")
		os.Exit(1)
	}
	if interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	ec, err := cfg.Engine(engineName)
	if err != nil {
		return err
	}
	if timeout > 0 {
		ec.Timeout = timeout
	}

	eng, err := engine.New(ec)
	if err != nil {
		return err
	}
	defer eng.Stop(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		if err := eng.Start(ctx); err != nil {
			return err
		}
		return runInteractive(eng, store)
	}

	script, err := readScript(scriptFile)
	if err != nil {
		return err
	}
	data, err := readData(dataJSON, dataFile)
	if err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}

	started := time.Now()
	resp, runErr := eng.Run(ctx, script, data)
	recordRun(store, engineName, script, started, resp, runErr)
	if runErr != nil {
		if resp != nil && resp.Output != "" {
			fmt.Fprintf(os.Stderr, "--- output ---\n%s\n", resp.Output)
		}
		return runErr
	}

	return printResponse(resp)
}

func readScript(path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(raw), nil
}

func readData(inline, path string) (map[string]any, error) {
	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case path != "":
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
	default:
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	return data, nil
}

func printResponse(resp *statbridge.Response) error {
	if resp.Output != "" {
		fmt.Printf("--- output ---\n%s\n", resp.Output)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "--- script error ---\n%s\n", resp.Error)
		return errScriptFailed
	}
	if resp.Result != nil {
		pretty, err := json.MarshalIndent(resp.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("render result: %w", err)
		}
		fmt.Printf("--- result ---\n%s\n", pretty)
	}
	if len(resp.Plots) > 0 {
		paths, err := savePlots(resp)
		if err != nil {
			return err
		}
		fmt.Printf("--- plots ---\n")
		for _, p := range paths {
			fmt.Println(p)
		}
	}
	return nil
}

func savePlots(resp *statbridge.Response) ([]string, error) {
	pngs, err := resp.PlotPNGs()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(pngs))
	for i, raw := range pngs {
		path := fmt.Sprintf("plot-%03d.png", i+1)
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printRecent(store *history.Store, n int) error {
	if store == nil {
		return fmt.Errorf("no history database configured (set history.path)")
	}
	recs, err := store.Recent(context.Background(), n)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		status := "ok"
		if !rec.Success {
			status = "fail"
		}
		fmt.Printf("%s  %-6s %-4s %8s  %s\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Engine, status, rec.Duration.Round(time.Millisecond), firstLine(rec.Script))
	}
	return nil
}

func recordRun(store *history.Store, engineName, script string, started time.Time, resp *statbridge.Response, runErr error) {
	if store == nil {
		return
	}
	rec := history.Record{
		Engine:    engineName,
		Script:    script,
		Duration:  time.Since(started),
		StartedAt: started,
	}
	switch {
	case runErr != nil:
		rec.Error = runErr.Error()
	case resp.Success:
		rec.RequestID = resp.ID
		rec.Success = true
	default:
		rec.RequestID = resp.ID
		rec.Error = resp.Error
	}
	if err := store.Append(context.Background(), rec); err != nil {
		fmt.Fprintf(os.Stderr, "warning: history append failed: %v\n", err)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func buildLogger(cfg config.LogCfg) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
