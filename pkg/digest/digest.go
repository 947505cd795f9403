package digest

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// HexLength is the length of a hex-encoded SHA2-256 digest.
const HexLength = 64

// Sum returns the SHA2-256 multihash of data.
func Sum(data []byte) (multihash.Multihash, error) {
	return multihash.Sum(data, multihash.SHA2_256, -1)
}

// Hex returns the lowercase hex SHA2-256 digest of data.
func Hex(data []byte) string {
	mh, err := Sum(data)
	if err != nil {
		// multihash.Sum only errors for unknown codes or bad lengths;
		// SHA2_256 with default length cannot hit either.
		return ""
	}
	decoded, err := multihash.Decode(mh)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(decoded.Digest)
}

// CID returns the CIDv1 (raw codec, sha2-256) of data in its default
// string encoding.
func CID(data []byte) (string, error) {
	mh, err := Sum(data)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// CIDFromHex converts a hex SHA2-256 digest into its CIDv1.
func CIDFromHex(s string) (string, error) {
	if !IsHex(s) {
		return "", fmt.Errorf("digest: %q is not a lowercase sha2-256 hex digest", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	mh, err := multihash.Encode(raw, multihash.SHA2_256)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// HexFromCID extracts the hex digest from a sha2-256 CID string.
func HexFromCID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", err
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return "", err
	}
	if decoded.Code != multihash.SHA2_256 {
		return "", multihash.ErrUnknownCode
	}
	return hex.EncodeToString(decoded.Digest), nil
}

// IsHex reports whether s is a well-formed digest: 64 lowercase hex chars.
func IsHex(s string) bool {
	if len(s) != HexLength {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}
