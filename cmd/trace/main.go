package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	stdruntime "runtime"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/asmtrace/capture"
	"github.com/wippyai/asmtrace/wazerotrace"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module to run under capture")
		output      = flag.String("o", "asmtrace-%p.bin", "Trace output path, %p expands to the pid")
		invoke      = flag.String("invoke", "", "Exported function to call after instantiation")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: trace -wasm <file.wasm> [-o path] [-invoke name]")
		fmt.Fprintln(os.Stderr, "       trace -wasm <file.wasm> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, capture.Usage())
		os.Exit(1)
	}
	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
		os.Exit(1)
	}

	// A nil logger leaves the session on its stderr default, which
	// still reports fatal capture errors.
	var logger *zap.Logger
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}

	host := wazerotrace.New(logger)
	agent, err := capture.Attach(host, *output, &capture.Config{
		Logger: logger,
		Arch:   stdruntime.GOARCH,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s\n", err, capture.Usage())
		os.Exit(1)
	}

	if *interactive {
		err = runInteractive(host, agent, *wasmFile, *invoke)
	} else {
		err = run(host, *wasmFile, *invoke)
	}
	host.Close()
	agent.Detach()

	stats := agent.Session().Stats()
	fmt.Fprintf(os.Stderr, "captured %d method loads, %d dynamic code blobs, %d bytes\n",
		stats.MethodLoads, stats.DynamicCodes, stats.Bytes)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(host *wazerotrace.Host, wasmFile, invoke string) error {
	ctx := host.Context(context.Background())

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	cfg := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithStdin(os.Stdin)
	mod, err := rt.InstantiateWithConfig(ctx, data, cfg)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer mod.Close(ctx)

	if invoke != "" {
		fn := mod.ExportedFunction(invoke)
		if fn == nil {
			return fmt.Errorf("no exported function %q", invoke)
		}
		if _, err := fn.Call(ctx); err != nil {
			return fmt.Errorf("call %s: %w", invoke, err)
		}
	}
	return nil
}
