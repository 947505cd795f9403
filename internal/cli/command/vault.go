package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/storage"
	"github.com/yndnr/vaultgate/internal/storage/vault"
	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// VaultCommand returns the vault subcommand group.
func VaultCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "Manage the local blob vault",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Vault directory (defaults to vault.dir)",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Store a blob file in the vault",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{passphraseFlag()},
				Action:    vaultPut,
			},
			{
				Name:      "get",
				Usage:     "Write a stored blob to a blob file",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Output blob file",
						Required: true,
					},
					passphraseFlag(),
					&cli.StringFlag{
						Name:  "cipher",
						Usage: "Cipher for an encrypted output file",
					},
				},
				Action: vaultGet,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored blobs",
				Action:  vaultList,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Remove a stored blob",
				ArgsUsage: "ID",
				Action:    vaultRemove,
			},
			{
				Name:   "gc",
				Usage:  "Run value log garbage collection",
				Action: vaultGC,
			},
			{
				Name:   "stats",
				Usage:  "Show storage statistics",
				Action: vaultStats,
			},
			{
				Name:      "backup",
				Usage:     "Write a full vault backup",
				ArgsUsage: "FILE",
				Action:    vaultBackup,
			},
			{
				Name:      "restore",
				Usage:     "Load a vault backup",
				ArgsUsage: "FILE",
				Action:    vaultRestore,
			},
		},
	}
}

// vaultHandle is an open vault and its storage engine.
type vaultHandle struct {
	engine *storage.BadgerEngine
	store  *vault.Store
}

// openVault opens the vault in dir, or vault.dir when dir is empty.
// Background GC stays off; one-shot commands run it explicitly.
func openVault(env *Env, dir string) (*vaultHandle, error) {
	cfg := env.Config.Vault
	kvCfg := storage.DefaultKVConfig(firstNonEmpty(dir, cfg.Dir))
	kvCfg.Badger.GCInterval = 0

	engine, err := storage.NewBadgerEngine(kvCfg, env.Logger)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if err := engine.RegisterMetrics(env.Metrics.Prometheus()); err != nil {
		env.Logger.Warn("badger metrics unavailable", "error", err)
	}

	opts := []vault.Option{
		vault.WithLogger(env.Logger),
		vault.WithRecorder(env.Metrics),
	}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		engine.Close()
		return nil, err
	}
	defer adaptive.ZeroKey(key)
	if key != nil {
		cipher, err := adaptive.ParseCipher(cfg.Cipher)
		if err != nil {
			engine.Close()
			return nil, err
		}
		opts = append(opts, vault.WithEncryptionKey(key, cipher))
	}

	store, err := vault.New(engine, opts...)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &vaultHandle{engine: engine, store: store}, nil
}

func (h *vaultHandle) Close() error {
	return h.engine.Close()
}

func withVault(c *cli.Context, fn func(env *Env, h *vaultHandle) error) (err error) {
	env := envFrom(c)
	h, err := openVault(env, c.String("dir"))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.Close())
	}()
	return fn(env, h)
}

type putResult struct {
	ID        string `json:"id" yaml:"id"`
	Size      int    `json:"size" yaml:"size"`
	SHA256    string `json:"sha256" yaml:"sha256"`
	Encrypted bool   `json:"encrypted_at_rest" yaml:"encrypted_at_rest"`
}

func vaultPut(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("FILE")
	}
	enc, err := blobEncryption(c)
	if err != nil {
		return err
	}
	blob, _, err := readBlobFile(c.Args().First(), enc)
	if err != nil {
		return err
	}

	return withVault(c, func(env *Env, h *vaultHandle) error {
		id, err := h.store.Put(contextOf(c), blob)
		if err != nil {
			return err
		}
		return env.Print(c, &putResult{
			ID:        id,
			Size:      blob.Size(),
			SHA256:    digest.Hex(blob.StateVector),
			Encrypted: h.store.Encrypted(),
		})
	})
}

func vaultGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("ID")
	}
	enc, err := blobEncryption(c)
	if err != nil {
		return err
	}

	return withVault(c, func(env *Env, h *vaultHandle) error {
		blob, err := h.store.Get(contextOf(c), c.Args().First())
		if err != nil {
			return err
		}
		out := c.String("out")
		if err := writeBlobFile(out, blob, enc); err != nil {
			return err
		}
		return env.Print(c, &packResult{
			ID:        blob.ID,
			File:      out,
			Size:      blob.Size(),
			SHA256:    digest.Hex(blob.StateVector),
			Encrypted: enc.Enabled(),
		})
	})
}

func vaultList(c *cli.Context) error {
	return withVault(c, func(env *Env, h *vaultHandle) error {
		items, err := h.store.List(contextOf(c))
		if err != nil {
			return err
		}
		return env.Print(c, items)
	})
}

func vaultRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("ID")
	}
	id := c.Args().First()
	return withVault(c, func(env *Env, h *vaultHandle) error {
		if err := h.store.Delete(contextOf(c), id); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "blob %s removed\n", id)
		return nil
	})
}

type gcResult struct {
	Reclaimed uint64 `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
}

func vaultGC(c *cli.Context) error {
	return withVault(c, func(env *Env, h *vaultHandle) error {
		n, err := h.engine.GC(contextOf(c))
		if err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
		return env.Print(c, &gcResult{Reclaimed: n})
	})
}

func vaultStats(c *cli.Context) error {
	return withVault(c, func(env *Env, h *vaultHandle) error {
		stats, err := h.engine.Stats(contextOf(c))
		if err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
		return env.Print(c, stats)
	})
}

func vaultBackup(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("FILE")
	}
	path := c.Args().First()
	return withVault(c, func(env *Env, h *vaultHandle) error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		if err := h.engine.Backup(contextOf(c), f); err != nil {
			f.Close()
			os.Remove(path)
			return domain.ErrStorageError.WithCause(err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		env.Logger.Info("vault backup written", "path", path)
		return nil
	})
}

func vaultRestore(c *cli.Context) error {
	if c.NArg() != 1 {
		return domain.ErrMissingArgument.WithDetails("FILE")
	}
	path := c.Args().First()
	return withVault(c, func(env *Env, h *vaultHandle) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := h.engine.Restore(contextOf(c), f); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
		env.Logger.Info("vault backup restored", "path", path)
		return nil
	})
}
