package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/yndnr/vaultgate/internal/core/domain"
)

// Magic bytes identify blob files.
var magicBytes = []byte("VGBLOB01")

const (
	checksumSize  = 32
	headerVersion = 1

	// MaxFileSize bounds the size of a blob file, written or read.
	MaxFileSize = 256 << 20

	frameLenSize = 4
)

// fileSizeLimit is MaxFileSize; tests lower it.
var fileSizeLimit = MaxFileSize

// Codec errors.
var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrTruncated        = errors.New("snapshot: truncated blob file")
	ErrTooLarge         = errors.New("snapshot: blob file too large")
)

// Header is the JSON header of a blob file.
type Header struct {
	Version   int               `json:"version" yaml:"version"`
	ID        string            `json:"id" yaml:"id"`
	Timestamp int64             `json:"timestamp" yaml:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Signature string            `json:"signature" yaml:"-"`
	Size      int               `json:"size" yaml:"size"`
	Encrypted bool              `json:"encrypted" yaml:"encrypted"`
	Cipher    string            `json:"cipher,omitempty" yaml:"cipher,omitempty"`
	Salt      []byte            `json:"salt,omitempty" yaml:"-"`
}

// Encode writes blob to w. A nil or disabled enc writes the state vector
// in the clear.
func Encode(w io.Writer, blob *domain.VaultedBlob, enc *EncryptionConfig) error {
	if blob == nil {
		return errors.New("snapshot: nil blob")
	}
	if err := blob.Validate(); err != nil {
		return err
	}
	if len(blob.StateVector) > fileSizeLimit {
		return ErrTooLarge
	}

	hdr := Header{
		Version:   headerVersion,
		ID:        blob.ID,
		Timestamp: blob.Timestamp,
		Metadata:  blob.Metadata,
		Signature: blob.Signature,
		Size:      len(blob.StateVector),
	}

	data := blob.StateVector
	if enc.Enabled() {
		sealer, salt, err := enc.sealer()
		if err != nil {
			return err
		}
		if data, err = sealer.Seal(blob.ID, blob.StateVector); err != nil {
			return fmt.Errorf("snapshot: encrypt: %w", err)
		}
		hdr.Encrypted = true
		hdr.Cipher = string(sealer.Cipher())
		hdr.Salt = salt
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("snapshot: marshal header: %w", err)
	}
	if encodedSize(len(hdrJSON), len(data)) > fileSizeLimit {
		return ErrTooLarge
	}

	hash := sha256.New()
	mw := io.MultiWriter(w, hash)

	if _, err := mw.Write(magicBytes); err != nil {
		return fmt.Errorf("snapshot: write magic: %w", err)
	}
	if err := writeFrame(mw, hdrJSON); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := writeFrame(mw, data); err != nil {
		return fmt.Errorf("snapshot: write data: %w", err)
	}

	// Checksum trailer is not part of the hash.
	if _, err := w.Write(hash.Sum(nil)); err != nil {
		return fmt.Errorf("snapshot: write checksum: %w", err)
	}
	return nil
}

// Decode reads a blob file from r. Encrypted files need enc.
func Decode(r io.Reader, enc *EncryptionConfig) (*domain.VaultedBlob, *Header, error) {
	hdr, data, err := readFile(r)
	if err != nil {
		return nil, nil, err
	}

	if hdr.Encrypted {
		sealer, err := enc.opener(hdr)
		if err != nil {
			return nil, hdr, err
		}
		plain, err := sealer.Open(hdr.ID, data)
		if err != nil {
			return nil, hdr, ErrDecryptionFailed
		}
		data = plain
	}
	if len(data) != hdr.Size {
		return nil, hdr, fmt.Errorf("snapshot: state vector is %d bytes, header says %d", len(data), hdr.Size)
	}

	blob := &domain.VaultedBlob{
		ID:          hdr.ID,
		Timestamp:   hdr.Timestamp,
		StateVector: data,
		Metadata:    hdr.Metadata,
		Signature:   hdr.Signature,
	}
	if blob.Metadata == nil {
		blob.Metadata = make(map[string]string)
	}
	if err := blob.Validate(); err != nil {
		return nil, hdr, err
	}
	return blob, hdr, nil
}

// Inspect reads and checks a blob file without decrypting it.
func Inspect(r io.Reader) (*Header, error) {
	hdr, _, err := readFile(r)
	return hdr, err
}

func readFile(r io.Reader) (*Header, []byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, int64(fileSizeLimit)+1))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read: %w", err)
	}
	if len(raw) > fileSizeLimit {
		return nil, nil, ErrTooLarge
	}
	if len(raw) < len(magicBytes) || !bytes.Equal(raw[:len(magicBytes)], magicBytes) {
		return nil, nil, ErrInvalidMagic
	}
	if len(raw) < len(magicBytes)+checksumSize {
		return nil, nil, ErrTruncated
	}

	body, trailer := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bytes.NewReader(body[len(magicBytes):])
	hdrJSON, err := readFrame(br)
	if err != nil {
		return nil, nil, err
	}
	if len(hdrJSON) == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}
	var hdr Header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}
	if hdr.Version != headerVersion {
		return nil, nil, fmt.Errorf("snapshot: unsupported header version %d", hdr.Version)
	}

	data, err := readFrame(br)
	if err != nil {
		return nil, nil, err
	}
	if br.Len() != 0 {
		return nil, nil, fmt.Errorf("snapshot: %d trailing bytes before checksum", br.Len())
	}
	return &hdr, data, nil
}

// encodedSize is the size of a blob file with the given header and data
// frame lengths.
func encodedSize(hdrLen, dataLen int) int {
	return len(magicBytes) + frameLenSize + hdrLen + frameLenSize + dataLen + checksumSize
}

func writeFrame(w io.Writer, p []byte) error {
	if uint64(len(p)) > math.MaxUint32 {
		return ErrTooLarge
	}
	var n [frameLenSize]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(p)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

func readFrame(r *bytes.Reader) ([]byte, error) {
	var n [frameLenSize]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, ErrTruncated
	}
	size := binary.BigEndian.Uint32(n[:])
	if int64(size) > int64(r.Len()) {
		return nil, ErrTruncated
	}
	p := make([]byte, size)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, ErrTruncated
	}
	return p, nil
}
