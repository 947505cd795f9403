package command

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/core/service"
	"github.com/yndnr/vaultgate/internal/telemetry/logger"
	"github.com/yndnr/vaultgate/internal/trust"
)

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Run the load sequence for a blob and report GREEN_LIGHT or HALT",
		Description: "Checks the blob against the digest ledger, then the runtime configuration\n" +
			"against the manifest. Exits 1 on HALT. With --handoff the verified state\n" +
			"vector is written out only after GREEN_LIGHT.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "trust",
				Aliases: []string{"t"},
				Usage:   "Trust anchor file (defaults to trust.file)",
			},
			&cli.StringFlag{
				Name:    "blob",
				Aliases: []string{"b"},
				Usage:   "Blob file to verify",
			},
			&cli.StringFlag{
				Name:  "vault-id",
				Usage: "Verify a blob from the vault instead of a file",
			},
			&cli.StringFlag{
				Name:    "runtime",
				Aliases: []string{"r"},
				Usage:   "Runtime configuration file (defaults to trust.runtime_file)",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Runtime parameter as KEY=VALUE, overrides the runtime file",
			},
			&cli.StringFlag{
				Name:  "handoff",
				Usage: "Write the verified state vector to this file on GREEN_LIGHT",
			},
			passphraseFlag(),
		},
		Action: verifyAction,
	}
}

// verifyResult is the printed outcome of one load sequence.
type verifyResult struct {
	AttemptID   string   `json:"attempt_id" yaml:"attempt_id" table:"wide"`
	BlobID      string   `json:"blob_id" yaml:"blob_id"`
	Outcome     string   `json:"outcome" yaml:"outcome"`
	Trail       []string `json:"trail" yaml:"trail"`
	Kind        string   `json:"refusal_kind,omitempty" yaml:"refusal_kind,omitempty"`
	Code        string   `json:"refusal_code,omitempty" yaml:"refusal_code,omitempty"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Parameter   string   `json:"parameter,omitempty" yaml:"parameter,omitempty" table:"wide"`
	Expected    string   `json:"expected,omitempty" yaml:"expected,omitempty" table:"wide"`
	Actual      string   `json:"actual,omitempty" yaml:"actual,omitempty" table:"wide"`
	Fingerprint string   `json:"trust_fingerprint" yaml:"trust_fingerprint" table:"wide"`
	Elapsed     string   `json:"elapsed" yaml:"elapsed"`
	Handoff     string   `json:"handoff,omitempty" yaml:"handoff,omitempty"`
}

func newVerifyResult(attempt string, anchors *trust.Anchors, report *service.LoadReport) *verifyResult {
	res := &verifyResult{
		AttemptID:   attempt,
		BlobID:      report.BlobID,
		Outcome:     string(report.Stage),
		Fingerprint: anchors.Fingerprint(),
		Elapsed:     report.Elapsed.Round(time.Microsecond).String(),
	}
	for _, s := range report.Trail {
		res.Trail = append(res.Trail, string(s))
	}
	if r := report.Refusal; r != nil {
		res.Kind = string(r.Kind())
		res.Code = r.Code()
		res.Reason = r.Error()
		d := domain.VisitRefusal[refusalDetail](r, refusalDetail{})
		res.Parameter, res.Expected, res.Actual = d.parameter, d.expected, d.actual
	}
	return res
}

// refusalDetail holds what was expected and what was found, per refusal.
type refusalDetail struct {
	parameter, expected, actual string
}

func (refusalDetail) VisitProvenanceMismatch(e *domain.ProvenanceMismatch) refusalDetail {
	return refusalDetail{parameter: "digest", expected: e.Expected, actual: e.Actual}
}

func (refusalDetail) VisitConfigDrift(e *domain.ConfigDrift) refusalDetail {
	return refusalDetail{parameter: e.Parameter, expected: e.Expected, actual: e.Actual}
}

func (refusalDetail) VisitUnauthorizedReplay(e *domain.UnauthorizedReplay) refusalDetail {
	return refusalDetail{parameter: "blob_id", expected: "ledger entry", actual: e.BlobID}
}

func (refusalDetail) VisitIntegrityFailure(*domain.IntegrityFailure) refusalDetail {
	return refusalDetail{parameter: "signature"}
}

func verifyAction(c *cli.Context) error {
	env := envFrom(c)

	trustFile := firstNonEmpty(c.String("trust"), env.Config.Trust.File)
	if trustFile == "" {
		return domain.ErrMissingArgument.WithDetails("--trust or trust.file")
	}
	blobFile, vaultID := c.String("blob"), c.String("vault-id")
	if (blobFile == "") == (vaultID == "") {
		return domain.ErrInvalidArgument.WithDetails("exactly one of --blob or --vault-id is required")
	}

	anchors, err := trust.Load(trustFile)
	if err != nil {
		return err
	}
	runtimeCfg, err := trust.LoadRuntimeConfig(
		firstNonEmpty(c.String("runtime"), env.Config.Trust.RuntimeFile),
		c.StringSlice("set"),
	)
	if err != nil {
		return err
	}

	blob, err := loadCandidate(c, env, blobFile, vaultID)
	if err != nil {
		return err
	}

	attempt := ulid.Make().String()
	ctx := logger.WithAttemptID(logger.WithLogger(contextOf(c), env.Logger), attempt)
	seq := service.NewLoadSequencer(anchors.Sentinel(),
		service.WithLogger(logger.L(ctx)),
		service.WithRecorder(env.Metrics),
	)
	report, halt := seq.Run(blob, runtimeCfg)
	res := newVerifyResult(attempt, anchors, report)

	var handoffErr error
	if halt == nil && c.String("handoff") != "" {
		handoffErr = handoff(c.String("handoff"), blob)
		if handoffErr == nil {
			res.Handoff = c.String("handoff")
			logger.L(ctx).Info("state vector handed off", "path", res.Handoff, "bytes", blob.Size())
		}
	}

	if err := env.Print(c, res); err != nil {
		return err
	}
	if halt != nil {
		return cli.Exit("", ExitHalt)
	}
	if handoffErr != nil {
		// The verdict stands; only the hand-off failed.
		logger.L(ctx).Error("hand-off failed", "error", handoffErr)
		return cli.Exit(fmt.Sprintf("handoff: %v", handoffErr), ExitHandoff)
	}
	return nil
}

// loadCandidate reads the blob to verify from a file or the vault.
func loadCandidate(c *cli.Context, env *Env, blobFile, vaultID string) (*domain.VaultedBlob, error) {
	if blobFile != "" {
		enc, err := blobEncryption(c)
		if err != nil {
			return nil, err
		}
		blob, _, err := readBlobFile(blobFile, enc)
		return blob, err
	}

	h, err := openVault(env, "")
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.store.Get(contextOf(c), vaultID)
}

// handoff passes the verified state vector to the destination runtime by
// writing it to path.
func handoff(path string, blob *domain.VaultedBlob) error {
	return writeFileAtomic(path, blob.StateVector)
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
