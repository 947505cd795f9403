package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/cli/output"
	"github.com/yndnr/vaultgate/internal/config"
	"github.com/yndnr/vaultgate/internal/infra/buildinfo"
	"github.com/yndnr/vaultgate/internal/infra/confloader"
	"github.com/yndnr/vaultgate/internal/telemetry/logger"
	"github.com/yndnr/vaultgate/internal/telemetry/metric"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitHalt    = 1
	ExitError   = 2
	ExitHandoff = 3
)

const envKey = "env"

// Env is the per-invocation state built before any command runs.
type Env struct {
	Config  *config.GateConfig
	Logger  logger.Logger
	Metrics *metric.Registry
	Format  output.Format
	Wide    bool

	haltFile *os.File
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "vaultgate",
		Usage:   "Fail-closed integrity gate for vaulted state blobs",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			VerifyCommand(),
			DigestCommand(),
			BlobCommand(),
			VaultCommand(),
			TrustCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
		Before:   before,
		After:    after,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			EnvVars: []string{"VAULTGATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output format: table, json, yaml",
			Value: string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write metrics in the node_exporter textfile format to this path on exit",
		},
	}
}

func before(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := &Env{
		Config:  cfg,
		Metrics: metric.NewRegistry(),
		Format:  format,
		Wide:    c.Bool("wide"),
	}
	if err := env.initLogger(c.App.Writer, c.App.ErrWriter); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	c.App.Metadata[envKey] = env
	env.Logger.Debug("configuration loaded", "config", config.Sanitize(cfg))
	return nil
}

func after(c *cli.Context) error {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok {
		return nil
	}
	var errs []error
	if path := env.Config.Metrics.File; path != "" {
		if err := env.Metrics.WriteToTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	if env.haltFile != nil {
		errs = append(errs, env.haltFile.Close())
	}
	return errors.Join(errs...)
}

// loadConfig applies defaults, the config file, VAULTGATE_* variables and
// finally the global flags.
func loadConfig(c *cli.Context) (*config.GateConfig, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"log-level":    "log.level",
		"log-format":   "log.format",
		"metrics-file": "metrics.file",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger sends info records to stdout and halts to stderr or
// log.halt_file.
func (e *Env) initLogger(stdout, stderr io.Writer) error {
	halt := stderr
	if path := e.Config.Log.HaltFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return err
		}
		e.haltFile = f
		halt = f
	}

	log, err := logger.New(logger.Config{
		Level:      e.Config.Log.Level,
		Format:     e.Config.Log.Format,
		Output:     stdout,
		HaltOutput: halt,
	})
	if err != nil {
		if e.haltFile != nil {
			e.haltFile.Close()
		}
		return err
	}
	logger.SetDefault(log)
	e.Logger = log
	return nil
}

// envFrom returns the Env built by before. Commands run without it only in
// tests that bypass App.
func envFrom(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env
	}
	return &Env{
		Config:  config.Default(),
		Logger:  logger.NewNop(),
		Metrics: metric.NewRegistry(),
		Format:  output.FormatTable,
	}
}

// Print writes data in the selected output format.
func (e *Env) Print(c *cli.Context, data any) error {
	return output.NewFormatter(e.Format, e.Wide).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
