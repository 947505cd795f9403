package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/storage"
	"github.com/yndnr/vaultgate/internal/telemetry/logger"
	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
	"github.com/yndnr/vaultgate/pkg/digest"
)

const (
	keyPrefix = "blob/"

	// subkeyInfo separates the vault key from other uses of the master key.
	subkeyInfo = "vaultgate/vault/v1"
)

// Operation names reported to the Recorder.
const (
	OpPut    = "put"
	OpGet    = "get"
	OpList   = "list"
	OpDelete = "delete"
)

// Recorder receives vault operation outcomes.
type Recorder interface {
	RecordVaultOp(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordVaultOp(string, error) {}

// record is the persisted form of a blob.
type record struct {
	ID        string            `json:"id"`
	Timestamp int64             `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Signature string            `json:"signature"`
	Digest    string            `json:"digest"`
	Size      int               `json:"size"`
	Encrypted bool              `json:"encrypted"`
	Cipher    string            `json:"cipher,omitempty"`
	Data      []byte            `json:"data"`
}

// Summary describes a stored blob without its state vector.
type Summary struct {
	ID        string            `json:"id" yaml:"id"`
	Timestamp int64             `json:"timestamp" yaml:"timestamp"`
	Size      int               `json:"size" yaml:"size"`
	Digest    string            `json:"digest" yaml:"digest"`
	Encrypted bool              `json:"encrypted" yaml:"encrypted"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Option configures a Store.
type Option func(*Store) error

// WithEncryptionKey seals state vectors with a key derived from master.
// New records use cipherType; existing records open with the cipher they
// were sealed with.
func WithEncryptionKey(master []byte, cipherType adaptive.CipherType) Option {
	return func(s *Store) error {
		key, err := adaptive.DeriveSubkey(master, subkeyInfo, adaptive.KeySize)
		if err != nil {
			return err
		}
		defer adaptive.ZeroKey(key)

		sealers := make(map[adaptive.CipherType]*adaptive.BlobSealer)
		for _, ct := range adaptive.Ciphers() {
			if sealers[ct], err = adaptive.NewBlobSealer(key, ct); err != nil {
				return err
			}
		}
		if cipherType == "" {
			cipherType = adaptive.DefaultCipher
		}
		sealer, ok := sealers[cipherType]
		if !ok {
			return fmt.Errorf("%w: %q", adaptive.ErrUnknownCipher, string(cipherType))
		}
		s.sealer = sealer
		s.openers = sealers
		return nil
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithRecorder sets the operation recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) error {
		if r != nil {
			s.recorder = r
		}
		return nil
	}
}

// Store is a blob vault over a storage.KVEngine.
type Store struct {
	kv       storage.KVEngine
	sealer   *adaptive.BlobSealer
	openers  map[adaptive.CipherType]*adaptive.BlobSealer
	logger   logger.Logger
	recorder Recorder
}

// New creates a Store. The caller owns kv and closes it.
func New(kv storage.KVEngine, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("vault: kv engine is required")
	}
	s := &Store{
		kv:       kv,
		logger:   logger.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
	}
	s.logger = s.logger.With("component", "vault")
	return s, nil
}

// Encrypted reports whether state vectors are sealed at rest.
func (s *Store) Encrypted() bool {
	return s.sealer != nil
}

// Put stores blob and returns its id. An empty id is replaced by a
// generated one. Storing the same state vector, signature and metadata under
// an existing id is a no-op; any difference is ErrBlobConflict and the stored
// record is kept. Timestamps are not compared.
func (s *Store) Put(ctx context.Context, blob *domain.VaultedBlob) (id string, err error) {
	defer func() { s.recorder.RecordVaultOp(OpPut, err) }()

	if blob == nil {
		return "", domain.ErrInvalidArgument.WithDetails("nil blob")
	}
	b := blob.Clone()
	if b.ID == "" {
		if b.ID, err = domain.GenerateBlobID(); err != nil {
			return "", err
		}
	}
	if err := b.Validate(); err != nil {
		return "", err
	}

	rec := record{
		ID:        b.ID,
		Timestamp: b.Timestamp,
		Metadata:  b.Metadata,
		Signature: b.Signature,
		Digest:    digest.Hex(b.StateVector),
		Size:      len(b.StateVector),
		Data:      b.StateVector,
	}
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(b.ID, b.StateVector)
		if err != nil {
			return "", domain.ErrInternal.WithDetails("seal blob").WithCause(err)
		}
		rec.Data = sealed
		rec.Encrypted = true
		rec.Cipher = string(s.sealer.Cipher())
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return "", domain.ErrInternal.WithCause(err)
	}

	existing, err := s.kv.PutIfAbsent(ctx, key(b.ID), value)
	if err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}
	if existing != nil {
		prev, err := decodeRecord(existing)
		if err != nil {
			return "", err
		}
		if prev.Digest != rec.Digest {
			return "", domain.ErrBlobConflict.WithDetails(fmt.Sprintf("id %q holds digest %s", b.ID, prev.Digest))
		}
		if prev.Signature != rec.Signature {
			return "", domain.ErrBlobConflict.WithDetails(fmt.Sprintf("id %q is stored with a different signature", b.ID))
		}
		if !sameMetadata(prev.Metadata, rec.Metadata) {
			return "", domain.ErrBlobConflict.WithDetails(fmt.Sprintf("id %q is stored with different metadata", b.ID))
		}
		s.logger.Debug("blob already stored", "blob_id", b.ID)
		return b.ID, nil
	}

	s.logger.Info("blob stored", "blob_id", b.ID, "size", rec.Size, "digest", rec.Digest, "encrypted", rec.Encrypted)
	return b.ID, nil
}

// Get returns the blob stored under id.
func (s *Store) Get(ctx context.Context, id string) (blob *domain.VaultedBlob, err error) {
	defer func() { s.recorder.RecordVaultOp(OpGet, err) }()

	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("blob id")
	}
	value, err := s.kv.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, domain.ErrBlobNotFound.WithDetails("id: " + id)
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	rec, err := decodeRecord(value)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, domain.ErrStorageError.WithDetails(fmt.Sprintf("record under %q claims id %q", id, rec.ID))
	}

	data := rec.Data
	if rec.Encrypted {
		if s.sealer == nil {
			return nil, domain.ErrStorageError.WithDetails("blob is encrypted and no vault key is configured")
		}
		opener, ok := s.openers[adaptive.CipherType(rec.Cipher)]
		if !ok {
			return nil, domain.ErrStorageError.WithDetails(fmt.Sprintf("blob sealed with unknown cipher %q", rec.Cipher))
		}
		if data, err = opener.Open(rec.ID, rec.Data); err != nil {
			return nil, domain.ErrStorageError.WithDetails("open sealed blob").WithCause(err)
		}
	}

	meta := rec.Metadata
	if meta == nil {
		meta = make(map[string]string)
	}
	return &domain.VaultedBlob{
		ID:          rec.ID,
		Timestamp:   rec.Timestamp,
		StateVector: data,
		Metadata:    meta,
		Signature:   rec.Signature,
	}, nil
}

// List returns summaries of all stored blobs ordered by id.
func (s *Store) List(ctx context.Context) (out []Summary, err error) {
	defer func() { s.recorder.RecordVaultOp(OpList, err) }()

	var decodeErr error
	err = s.kv.Scan(ctx, []byte(keyPrefix), func(_, value []byte) bool {
		rec, err := decodeRecord(value)
		if err != nil {
			decodeErr = err
			return false
		}
		out = append(out, Summary{
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			Size:      rec.Size,
			Digest:    rec.Digest,
			Encrypted: rec.Encrypted,
			Metadata:  rec.Metadata,
		})
		return true
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the blob stored under id.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.recorder.RecordVaultOp(OpDelete, err) }()

	if id == "" {
		return domain.ErrMissingArgument.WithDetails("blob id")
	}
	if _, err := s.kv.Get(ctx, key(id)); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return domain.ErrBlobNotFound.WithDetails("id: " + id)
		}
		return domain.ErrStorageError.WithCause(err)
	}
	if err := s.kv.Delete(ctx, key(id)); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	s.logger.Info("blob deleted", "blob_id", id)
	return nil
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func decodeRecord(value []byte) (*record, error) {
	var rec record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, domain.ErrStorageError.WithDetails("corrupt vault record").WithCause(err)
	}
	return &rec, nil
}

func sameMetadata(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
