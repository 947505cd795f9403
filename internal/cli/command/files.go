package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/storage/snapshot"
	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
)

// passphraseFlag is shared by commands that read or write blob files.
func passphraseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "passphrase",
		Usage:   "Passphrase for encrypted blob files",
		EnvVars: []string{"VAULTGATE_BLOB_PASSPHRASE"},
	}
}

// blobEncryption builds the blob file encryption settings from the
// passphrase and cipher flags. It returns nil when no passphrase is set.
func blobEncryption(c *cli.Context) (*snapshot.EncryptionConfig, error) {
	pass := c.String("passphrase")
	if pass == "" {
		return nil, nil
	}
	cipher, err := adaptive.ParseCipher(c.String("cipher"))
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("cipher").WithCause(err)
	}
	enc := &snapshot.EncryptionConfig{Passphrase: []byte(pass), Cipher: cipher}
	if err := snapshot.ValidateConfig(*enc); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("passphrase").WithCause(err)
	}
	return enc, nil
}

// readBlobFile decodes a blob file. Transport damage and decryption
// failures come back as ErrBlobMalformed.
func readBlobFile(path string, enc *snapshot.EncryptionConfig) (*domain.VaultedBlob, *snapshot.Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read blob file: %w", err)
	}
	blob, hdr, err := snapshot.Decode(bytes.NewReader(data), enc)
	if err != nil {
		return nil, nil, domain.ErrBlobMalformed.WithDetails(path).WithCause(err)
	}
	return blob, hdr, nil
}

// writeBlobFile encodes blob into path atomically.
func writeBlobFile(path string, blob *domain.VaultedBlob, enc *snapshot.EncryptionConfig) error {
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, blob, enc); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place. Readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
