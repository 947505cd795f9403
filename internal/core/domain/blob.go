package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Blob constraints.
const (
	MaxBlobIDLength        = 128
	MaxMetadataKeyLength   = 64
	MaxMetadataValueLength = 1024
	MaxMetadataEntries     = 64

	// BlobIDPrefix is the prefix for generated blob IDs.
	BlobIDPrefix = "vgb-"
)

// VaultedBlob is an immutable save-state presented to the gate for loading.
//
// Only ID, StateVector and Signature take part in verification. Timestamp and
// Metadata are carried for the producer and the destination runtime.
type VaultedBlob struct {
	// ID identifies the blob and keys into the trust ledger.
	ID string `json:"id"`

	// Timestamp is the creation time (Unix milliseconds). Advisory only.
	Timestamp int64 `json:"timestamp"`

	// StateVector is the opaque content being trust-checked.
	StateVector []byte `json:"state_vector"`

	// Metadata is free-form and not covered by the ledger digest.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Signature must be non-empty. No signature scheme is verified yet.
	Signature string `json:"signature"`
}

// NewVaultedBlob creates a blob with a generated ID and the current time.
func NewVaultedBlob(stateVector []byte, signature string) (*VaultedBlob, error) {
	id, err := GenerateBlobID()
	if err != nil {
		return nil, err
	}
	return &VaultedBlob{
		ID:          id,
		Timestamp:   time.Now().UnixMilli(),
		StateVector: stateVector,
		Metadata:    make(map[string]string),
		Signature:   signature,
	}, nil
}

// GenerateBlobID generates a new blob ID.
// Format: vgb-{ulid_lowercase}, 30 characters total.
func GenerateBlobID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return BlobIDPrefix + strings.ToLower(id.String()), nil
}

// IsGeneratedBlobID reports whether id has the format produced by GenerateBlobID.
func IsGeneratedBlobID(id string) bool {
	if !strings.HasPrefix(id, BlobIDPrefix) || len(id) != len(BlobIDPrefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(BlobIDPrefix):]))
	return err == nil
}

// Validate checks structural constraints. It says nothing about trust.
func (b *VaultedBlob) Validate() error {
	if b.ID == "" {
		return ErrBlobValidation.WithDetails("id is required")
	}
	if len(b.ID) > MaxBlobIDLength {
		return ErrBlobValidation.WithDetails("id exceeds maximum length")
	}
	if len(b.Metadata) > MaxMetadataEntries {
		return ErrBlobValidation.WithDetails("too many metadata entries")
	}
	for k, v := range b.Metadata {
		if k == "" {
			return ErrBlobValidation.WithDetails("metadata key must not be empty")
		}
		if len(k) > MaxMetadataKeyLength {
			return ErrBlobValidation.WithDetails("metadata key too long: " + k)
		}
		if len(v) > MaxMetadataValueLength {
			return ErrBlobValidation.WithDetails("metadata value too long for key: " + k)
		}
	}
	return nil
}

// Clone returns a deep copy of the blob.
func (b *VaultedBlob) Clone() *VaultedBlob {
	c := *b
	if b.StateVector != nil {
		c.StateVector = append([]byte(nil), b.StateVector...)
	}
	if b.Metadata != nil {
		c.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// TimestampTime returns Timestamp as time.Time.
func (b *VaultedBlob) TimestampTime() time.Time {
	return time.UnixMilli(b.Timestamp)
}

// Size returns the length of the state vector in bytes.
func (b *VaultedBlob) Size() int {
	return len(b.StateVector)
}
