package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jwtly10/leandoc"
	"github.com/jwtly10/leandoc/internal/cli"
	"github.com/jwtly10/leandoc/internal/config"
	"github.com/jwtly10/leandoc/internal/transformer"
	"github.com/jwtly10/leandoc/internal/watch"

	_ "github.com/joho/godotenv/autoload"
	ucli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &ucli.Command{
		Name:      "leandoc",
		Usage:     "Convert LeanDoc documents to Typst source",
		ArgsUsage: "<input file or directory>",
		Action:    run,
		Flags: []ucli.Flag{
			&ucli.BoolFlag{
				Name:  "tokens",
				Usage: "Dump the classified line-token stream and exit",
			},
			&ucli.BoolFlag{
				Name:  "ast",
				Usage: "Dump the document tree and exit",
			},
			&ucli.BoolFlag{
				Name:  "typst",
				Usage: "Convert to Typst source (the default mode)",
			},
			&ucli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to the input path with a .typ extension)",
			},
			&ucli.StringFlag{
				Name:  "template",
				Usage: "Built-in template: plain or report",
				Value: "plain",
			},
			&ucli.StringFlag{
				Name:  "template-file",
				Usage: "Import the given Typst file instead of a built-in preamble",
			},
			&ucli.BoolFlag{
				Name:  "no-raw",
				Usage: "Disallow raw passthrough of stem and passthrough content",
			},
			&ucli.BoolFlag{
				Name:  "no-backup",
				Usage: "Do not back up existing output files before overwriting",
			},
			&ucli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and re-convert sources on change",
			},
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: ucli.EnvVars("LEANDOC_CONFIG"),
			},
			&ucli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "leandoc: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps parse and generation faults to 1 and usage/IO faults to 2.
func exitCode(err error) int {
	var pe *leandoc.ParseError
	var ge *leandoc.GenError
	if errors.As(err, &pe) || errors.As(err, &ge) {
		return 1
	}
	return 2
}

func run(ctx context.Context, cmd *ucli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	input := cmd.Args().First()
	if input == "" {
		return fmt.Errorf("an input file or directory is required")
	}
	modes := 0
	for _, mode := range []string{"tokens", "ast", "typst"} {
		if cmd.Bool(mode) {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("choose exactly one of --tokens, --ast and --typst")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("tokens"):
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		return leandoc.DumpTokens(string(data), os.Stdout)

	case cmd.Bool("ast"):
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		doc, err := leandoc.NewParser().Parse(string(data))
		if err != nil {
			return err
		}
		return doc.Dump(os.Stdout)
	}

	opts := transformer.TransformOptions{
		Gen:      cfg.GenOptions(),
		NoBackup: cfg.NoBackup,
	}
	slog.Debug("transform options resolved", "options", opts.Pretty())

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("error accessing input: %w", err)
	}

	if info.IsDir() {
		return runDirectory(ctx, cmd, input, opts)
	}
	return runFile(ctx, cmd, input, opts)
}

// loadConfig resolves the effective configuration: an explicit --config
// file, else leandoc.yml in the working directory, else defaults. CLI flags
// override config values.
func loadConfig(cmd *ucli.Command) (config.Config, error) {
	cfg := config.Default()

	path := cmd.String("config")
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else if _, err := os.Stat(config.DefaultFileName); err == nil {
		loaded, err := config.Load(config.DefaultFileName)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.IsSet("template") {
		cfg.Template = cmd.String("template")
	}
	if cmd.IsSet("template-file") {
		cfg.TemplateFile = cmd.String("template-file")
	}
	if cmd.IsSet("no-raw") {
		cfg.NoRaw = cmd.Bool("no-raw")
	}
	if cmd.IsSet("no-backup") {
		cfg.NoBackup = cmd.Bool("no-backup")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runFile(ctx context.Context, cmd *ucli.Command, input string, opts transformer.TransformOptions) error {
	convert := func(path string) (string, error) {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("error opening file: %w", err)
		}
		defer f.Close()

		t := transformer.NewTransformer(opts)
		src := transformer.Source{
			Content:   f,
			AbsSource: leandoc.MustAbs(path),
		}
		if out := cmd.String("out"); out != "" {
			return t.TransformToPath(src, leandoc.MustAbs(out))
		}
		return t.Transform(src)
	}

	outPath, err := convert(input)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s to %s\n", input, outPath)

	if !cmd.Bool("watch") {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch.Watch(ctx, filepath.Dir(leandoc.MustAbs(input)), func(path string) {
		if leandoc.MustAbs(path) != leandoc.MustAbs(input) {
			return
		}
		if outPath, err := convert(path); err != nil {
			slog.Error("conversion failed", "path", path, "error", err)
		} else {
			slog.Info("converted", "path", path, "output", outPath)
		}
	})
}

func runDirectory(ctx context.Context, cmd *ucli.Command, input string, opts transformer.TransformOptions) error {
	if cmd.String("out") != "" {
		return fmt.Errorf("-o cannot be combined with a directory input")
	}

	processor := cli.NewProcessor(opts)
	results, err := processor.ProcessPath(input)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("Wrote %s to %s\n", r.Path, r.OutPath)
	}

	if !cmd.Bool("watch") {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch.Watch(ctx, input, func(path string) {
		if !strings.HasSuffix(path, ".adoc") {
			return
		}
		if _, err := processor.ProcessPath(path); err != nil {
			slog.Error("conversion failed", "path", path, "error", err)
		} else {
			slog.Info("converted", "path", path)
		}
	})
}
