package command

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/storage/snapshot"
	"github.com/yndnr/vaultgate/internal/trust"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// BlobCommand returns the blob subcommand group.
func BlobCommand() *cli.Command {
	return &cli.Command{
		Name:  "blob",
		Usage: "Pack and inspect blob files",
		Subcommands: []*cli.Command{
			{
				Name:  "pack",
				Usage: "Pack a state vector into a blob file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "state",
						Aliases:  []string{"s"},
						Usage:    "State vector file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Blob ID (default: generated vgb-<ulid>)",
					},
					&cli.StringFlag{
						Name:  "signature",
						Usage: "Producer signature",
					},
					&cli.StringSliceFlag{
						Name:    "meta",
						Aliases: []string{"m"},
						Usage:   "Metadata as KEY=VALUE pairs",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output blob file",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "Write into a managed archive directory instead of --out",
					},
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Archive: blob files always kept",
						Value: snapshot.DefaultRetentionCount,
					},
					&cli.IntFlag{
						Name:  "keep-days",
						Usage: "Archive: keep blob files newer than this many days",
						Value: snapshot.DefaultRetentionDays,
					},
					passphraseFlag(),
					&cli.StringFlag{
						Name:  "cipher",
						Usage: "Cipher for encrypted files: aes-gcm, chacha20-poly1305 (default: aes-gcm)",
					},
				},
				Action: blobPack,
			},
			{
				Name:      "inspect",
				Usage:     "Show a blob file header and check its transport checksum",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{passphraseFlag()},
				Action:    blobInspect,
			},
			{
				Name:      "list",
				Usage:     "List blob files in an archive directory",
				ArgsUsage: "DIR",
				Action:    blobList,
			},
		},
	}
}

type packResult struct {
	ID        string   `json:"id" yaml:"id"`
	File      string   `json:"file" yaml:"file"`
	Size      int      `json:"size" yaml:"size"`
	SHA256    string   `json:"sha256" yaml:"sha256"`
	Encrypted bool     `json:"encrypted" yaml:"encrypted"`
	Pruned    []string `json:"pruned,omitempty" yaml:"pruned,omitempty"`
}

func blobPack(c *cli.Context) error {
	env := envFrom(c)

	out, archive := c.String("out"), c.String("archive")
	if (out == "") == (archive == "") {
		return domain.ErrInvalidArgument.WithDetails("exactly one of --out or --archive is required")
	}

	state, err := os.ReadFile(c.String("state"))
	if err != nil {
		return fmt.Errorf("read state vector: %w", err)
	}
	blob, err := domain.NewVaultedBlob(state, c.String("signature"))
	if err != nil {
		return err
	}
	if id := c.String("id"); id != "" {
		blob.ID = id
	}
	meta, err := trust.ParseOverrides(c.StringSlice("meta"))
	if err != nil {
		return err
	}
	for k, v := range meta {
		blob.Metadata[k] = fmt.Sprint(v)
	}
	if err := blob.Validate(); err != nil {
		return err
	}

	enc, err := blobEncryption(c)
	if err != nil {
		return err
	}

	res := &packResult{
		ID:        blob.ID,
		Size:      blob.Size(),
		SHA256:    digest.Hex(blob.StateVector),
		Encrypted: enc.Enabled(),
	}

	if out != "" {
		if err := writeBlobFile(out, blob, enc); err != nil {
			return err
		}
		res.File = out
	} else {
		mgr, err := snapshot.NewManager(snapshot.Config{
			Dir:            archive,
			RetentionCount: c.Int("keep"),
			RetentionDays:  c.Int("keep-days"),
			Encryption:     enc,
		})
		if err != nil {
			return err
		}
		info, err := mgr.Write(blob)
		if err != nil {
			return err
		}
		res.File = info.Path
		if res.Pruned, err = mgr.Prune(); err != nil {
			env.Logger.Warn("archive prune failed", "dir", archive, "error", err)
		}
	}

	env.Logger.Info("blob packed", "blob_id", blob.ID, "file", res.File, "encrypted", res.Encrypted)
	return env.Print(c, res)
}

type inspectResult struct {
	File      string            `json:"file" yaml:"file"`
	ID        string            `json:"id" yaml:"id"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Size      int               `json:"size" yaml:"size"`
	Signed    bool              `json:"signed" yaml:"signed"`
	Encrypted bool              `json:"encrypted" yaml:"encrypted"`
	Cipher    string            `json:"cipher,omitempty" yaml:"cipher,omitempty"`
	SHA256    string            `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" table:"wide"`
}

func blobInspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("FILE")
	}
	env := envFrom(c)
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read blob file: %w", err)
	}
	hdr, err := snapshot.Inspect(bytes.NewReader(data))
	if err != nil {
		return domain.ErrBlobMalformed.WithDetails(path).WithCause(err)
	}

	res := &inspectResult{
		File:      path,
		ID:        hdr.ID,
		Timestamp: time.UnixMilli(hdr.Timestamp).UTC(),
		Size:      hdr.Size,
		Signed:    hdr.Signature != "",
		Encrypted: hdr.Encrypted,
		Cipher:    hdr.Cipher,
		Metadata:  hdr.Metadata,
	}

	// The state digest needs the plaintext.
	enc, err := blobEncryption(c)
	if err != nil {
		return err
	}
	if !hdr.Encrypted || enc.Enabled() {
		blob, _, err := snapshot.Decode(bytes.NewReader(data), enc)
		if err != nil {
			return domain.ErrBlobMalformed.WithDetails(path).WithCause(err)
		}
		res.SHA256 = digest.Hex(blob.StateVector)
	}
	return env.Print(c, res)
}

func blobList(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("DIR")
	}
	env := envFrom(c)

	dir := c.Args().First()
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	mgr, err := snapshot.NewManager(snapshot.DefaultConfig(dir))
	if err != nil {
		return err
	}
	files, err := mgr.List()
	if err != nil {
		return err
	}
	return env.Print(c, files)
}
