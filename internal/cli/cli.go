// Package cli provides the command line configuration and application
// logic for the ferrule tool.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ferrule-go/ferrule/internal/compiler"
	"github.com/ferrule-go/ferrule/internal/source"
	"github.com/ferrule-go/ferrule/internal/typereg"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI is the root command configuration with subcommands.
type CLI struct {
	LogLevel string           `kong:"short='l',help='Log level',enum='debug,info,warn,error',default='info'"`
	Compile  CompileCmd       `kong:"cmd,help='Compile definition files into a Go accessor artifact'"`
	Check    CheckCmd         `kong:"cmd,help='Validate definition files'"`
	Version  kong.VersionFlag `kong:"short='v',help='Show version and exit.'"`
}

// CompileCmd compiles YAML definition files ahead of time.
type CompileCmd struct {
	Output  string   `kong:"short='o',default='.',help='Directory the artifact is written to'"`
	Name    string   `kong:"short='n',default='container.go',help='File name of the artifact within the output directory'"`
	Package string   `kong:"short='p',default='compiled',help='Package name of the generated file'"`
	Entries []string `kong:"short='e',help='Entry names to compile; all entries when empty'"`
	Env     []string `kong:"help='Dotenv files loaded before compilation'"`
	Files   []string `kong:"arg,help='YAML definition files, earliest wins'"`
}

// Run executes the compile command.
func (c *CompileCmd) Run(cli *CLI) error {
	logger, err := setupLogger(cli.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if len(c.Files) == 0 {
		return fmt.Errorf("no definition files specified")
	}

	name := c.Name
	if name == "" {
		name = compiler.DefaultArtifactName
	}
	if target := filepath.Join(c.Output, name); fileExists(target) {
		logger.Info("artifact already present, skipping compilation",
			zap.String("path", target))
		return nil
	}

	if len(c.Env) > 0 {
		if err := godotenv.Load(c.Env...); err != nil {
			return fmt.Errorf("load dotenv: %w", err)
		}
	}

	chain := loadChain(c.Files)

	comp := compiler.New(chain, typereg.New(),
		compiler.WithLogger(logger),
		compiler.WithPackageName(c.Package))

	result, err := comp.Compile(c.Entries)
	if err != nil {
		return err
	}

	path, err := compiler.WriteArtifact(c.Output, name, result.Source)
	if err != nil {
		return err
	}

	logger.Info("artifact written",
		zap.String("path", path),
		zap.Int("compiled", len(result.Order)),
		zap.Int("dynamic", len(result.Skipped)))

	skippedNames := make([]string, 0, len(result.Skipped))
	for name := range result.Skipped {
		skippedNames = append(skippedNames, name)
	}
	sort.Strings(skippedNames)
	for _, name := range skippedNames {
		logger.Debug("entry stays dynamic",
			zap.String("entry", name), zap.String("reason", result.Skipped[name]))
	}
	return nil
}

// CheckCmd parses definition files and verifies every entry, including
// decorator bindings, without building anything.
type CheckCmd struct {
	Files []string `kong:"arg,help='YAML definition files, earliest wins'"`
}

// Run executes the check command.
func (c *CheckCmd) Run(cli *CLI) error {
	logger, err := setupLogger(cli.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if len(c.Files) == 0 {
		return fmt.Errorf("no definition files specified")
	}

	chain := loadChain(c.Files)

	defs, err := chain.Definitions()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	// Individual lookups force decorator binding, surfacing chained or
	// unbound decorators that the merged view does not.
	var failed int
	for _, name := range names {
		if _, err := chain.Definition(name); err != nil {
			logger.Error("invalid entry", zap.String("entry", name), zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d entries invalid", failed, len(names))
	}
	logger.Info("definitions valid", zap.Int("entries", len(names)))
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadChain(files []string) *source.Chain {
	sources := make([]source.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, source.NewFile(f))
	}
	return source.NewChain(sources...)
}

// Run parses the command line and dispatches to the selected command.
func Run() error {
	var cli CLI
	kongCtx := kong.Parse(&cli,
		kong.Name("ferrule"),
		kong.Description("A dependency injection container with ahead-of-time compilation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s) released on %s", version, commit, date),
		},
	)

	return kongCtx.Run(&cli)
}

func setupLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
