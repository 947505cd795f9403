package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/cli/output"
	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/infra/shutdown"
	"github.com/yndnr/vaultgate/internal/telemetry/metric"
	"github.com/yndnr/vaultgate/internal/trust"
	"github.com/yndnr/vaultgate/pkg/digest"
)

const watchShutdownTimeout = 10 * time.Second

// TrustCommand returns the trust subcommand group.
func TrustCommand() *cli.Command {
	trustFlag := &cli.StringFlag{
		Name:    "trust",
		Aliases: []string{"t"},
		Usage:   "Trust anchor file (defaults to trust.file)",
	}
	return &cli.Command{
		Name:  "trust",
		Usage: "Inspect and watch trust anchors",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Validate trust anchors, and optionally a runtime configuration for drift",
				Flags: []cli.Flag{
					trustFlag,
					&cli.StringFlag{
						Name:    "runtime",
						Aliases: []string{"r"},
						Usage:   "Runtime configuration file to check for drift",
					},
					&cli.StringSliceFlag{
						Name:  "set",
						Usage: "Runtime parameter as KEY=VALUE",
					},
				},
				Action: trustCheck,
			},
			{
				Name:   "show",
				Usage:  "Print the digest ledger and configuration manifest",
				Flags:  []cli.Flag{trustFlag},
				Action: trustShow,
			},
			{
				Name:  "watch",
				Usage: "Keep a trust epoch loaded, reloading on file change or SIGHUP",
				Flags: []cli.Flag{
					trustFlag,
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve /metrics on this address (defaults to metrics.addr)",
					},
				},
				Action: trustWatch,
			},
		},
	}
}

func trustFile(c *cli.Context, env *Env) (string, error) {
	path := firstNonEmpty(c.String("trust"), env.Config.Trust.File)
	if path == "" {
		return "", domain.ErrMissingArgument.WithDetails("--trust or trust.file")
	}
	return path, nil
}

type checkResult struct {
	Source          string `json:"source" yaml:"source"`
	Fingerprint     string `json:"fingerprint" yaml:"fingerprint"`
	LedgerEntries   int    `json:"ledger_entries" yaml:"ledger_entries"`
	ManifestEntries int    `json:"manifest_entries" yaml:"manifest_entries"`
	Drift           string `json:"drift,omitempty" yaml:"drift,omitempty"`
}

func trustCheck(c *cli.Context) error {
	env := envFrom(c)
	path, err := trustFile(c, env)
	if err != nil {
		return err
	}
	anchors, err := trust.Load(path)
	if err != nil {
		return err
	}

	res := &checkResult{
		Source:          path,
		Fingerprint:     anchors.Fingerprint(),
		LedgerEntries:   len(anchors.Ledger()),
		ManifestEntries: anchors.Manifest().Len(),
	}

	runtimeFile := c.String("runtime")
	if runtimeFile == "" && !c.IsSet("set") {
		return env.Print(c, res)
	}
	runtimeCfg, err := trust.LoadRuntimeConfig(runtimeFile, c.StringSlice("set"))
	if err != nil {
		return err
	}
	driftErr := anchors.Sentinel().CheckDrift(runtimeCfg)
	if driftErr != nil {
		res.Drift = driftErr.Error()
	} else {
		res.Drift = "none"
	}
	if err := env.Print(c, res); err != nil {
		return err
	}
	if driftErr != nil {
		env.Logger.Error("runtime configuration drifted from manifest", "error", driftErr)
		return cli.Exit("", ExitHalt)
	}
	return nil
}

type ledgerRow struct {
	ID     string `json:"id" yaml:"id"`
	Digest string `json:"digest" yaml:"digest"`
	CID    string `json:"cid" yaml:"cid"`
}

type showResult struct {
	Source      string                 `json:"source" yaml:"source"`
	Fingerprint string                 `json:"fingerprint" yaml:"fingerprint"`
	Ledger      []ledgerRow            `json:"ledger" yaml:"ledger"`
	Manifest    []domain.ManifestEntry `json:"manifest" yaml:"manifest"`
}

func trustShow(c *cli.Context) error {
	env := envFrom(c)
	path, err := trustFile(c, env)
	if err != nil {
		return err
	}
	anchors, err := trust.Load(path)
	if err != nil {
		return err
	}

	res := &showResult{
		Source:      path,
		Fingerprint: anchors.Fingerprint(),
		Manifest:    anchors.Manifest().Entries(),
	}
	for _, e := range anchors.Ledger() {
		row := ledgerRow{ID: e.ID, Digest: e.Digest}
		if id, err := digest.CIDFromHex(e.Digest); err == nil {
			row.CID = id
		}
		res.Ledger = append(res.Ledger, row)
	}

	if env.Format != output.FormatTable {
		return env.Print(c, res)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Trust anchors %s (fingerprint %s)\n\n", res.Source, res.Fingerprint)
	ledger := &output.Table{Headers: []string{"ID", "DIGEST"}}
	if env.Wide {
		ledger.Headers = append(ledger.Headers, "CID")
	}
	for _, r := range res.Ledger {
		if env.Wide {
			ledger.AddRow(r.ID, r.Digest, r.CID)
		} else {
			ledger.AddRow(r.ID, r.Digest)
		}
	}
	if err := ledger.Render(w); err != nil {
		return err
	}
	fmt.Fprintln(w)

	manifest := &output.Table{Headers: []string{"PARAMETER", "VALUE"}}
	for _, e := range res.Manifest {
		manifest.AddRow(e.Key, e.Value)
	}
	return manifest.Render(w)
}

func trustWatch(c *cli.Context) error {
	env := envFrom(c)
	path, err := trustFile(c, env)
	if err != nil {
		return err
	}

	epoch, err := trust.NewEpoch(path,
		trust.WithEpochLogger(env.Logger),
		trust.WithEpochRecorder(env.Metrics),
	)
	if err != nil {
		return err
	}
	if err := env.Metrics.Prometheus().Register(metric.NewTrustCollector(epoch)); err != nil {
		epoch.Close()
		return fmt.Errorf("register trust collector: %w", err)
	}
	if file := env.Config.Metrics.File; file != "" {
		epoch.OnSwap(func(*trust.Anchors) {
			if err := env.Metrics.WriteToTextfile(file); err != nil {
				env.Logger.Warn("write metrics file failed", "path", file, "error", err)
			}
		})
	}
	if err := epoch.Watch(); err != nil {
		epoch.Close()
		return err
	}

	h := shutdown.NewHandler(watchShutdownTimeout)
	h.OnShutdown(func(context.Context) error {
		env.Logger.Info("trust watch stopped", "epochs", epoch.Seq())
		return epoch.Close()
	})
	h.OnReload(func() {
		env.Logger.Info("SIGHUP received; reloading trust anchors")
		_ = epoch.Reload()
	})

	if addr := firstNonEmpty(c.String("metrics-addr"), env.Config.Metrics.Addr); addr != "" {
		srv, err := serveMetrics(env, addr)
		if err != nil {
			epoch.Close()
			return err
		}
		h.OnShutdown(srv.Shutdown)
	}

	env.Logger.Info("watching trust anchors", "path", path, "fingerprint", epoch.Anchors().Fingerprint())
	return h.Wait(contextOf(c))
}

// serveMetrics starts the /metrics listener. The listener is bound before
// returning so address errors surface immediately.
func serveMetrics(env *Env, addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", env.Metrics.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		env.Logger.Info("metrics listening", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Logger.Error("metrics server error", "error", err)
		}
	}()
	return srv, nil
}
