package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// DigestCommand returns the digest command.
func DigestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Print the SHA-256 digest and CIDv1 of files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "state",
				Usage: "Treat each FILE as a blob file and digest its state vector",
			},
			passphraseFlag(),
		},
		Action: digestAction,
	}
}

type digestRow struct {
	File   string `json:"file" yaml:"file"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Size   int    `json:"size" yaml:"size"`
	SHA256 string `json:"sha256" yaml:"sha256"`
	CID    string `json:"cid" yaml:"cid" table:"wide"`
}

func digestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return domain.ErrMissingArgument.WithDetails("FILE")
	}
	env := envFrom(c)

	rows := make([]digestRow, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		row := digestRow{File: path}

		var data []byte
		if c.Bool("state") {
			enc, err := blobEncryption(c)
			if err != nil {
				return err
			}
			blob, _, err := readBlobFile(path, enc)
			if err != nil {
				return err
			}
			row.ID = blob.ID
			data = blob.StateVector
		} else {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			data = b
		}

		id, err := digest.CID(data)
		if err != nil {
			return err
		}
		row.Size = len(data)
		row.SHA256 = digest.Hex(data)
		row.CID = id
		rows = append(rows, row)
	}
	return env.Print(c, rows)
}
