// Package checksum provides a uniform hashing abstraction over the three
// content-digest algorithms that galdi snapshots may use: xxh3_64, blake3, and
// sha256. Exactly one algorithm is used across an entire snapshot; mixing is
// forbidden by construction (see pkg/snapshot).
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// Algorithm identifies one of the supported checksum algorithms. The zero
// value is not a valid algorithm.
type Algorithm uint8

const (
	// AlgorithmXXH3 identifies the 64-bit XXH3 algorithm.
	AlgorithmXXH3 Algorithm = iota + 1
	// AlgorithmBLAKE3 identifies the 256-bit BLAKE3 algorithm.
	AlgorithmBLAKE3
	// AlgorithmSHA256 identifies the 256-bit SHA-256 algorithm.
	AlgorithmSHA256
)

// digestCopyBufferSize is the size of the buffer used to stream file content
// into a hasher. Chosen within the 64 KiB-1 MiB range recommended by the
// digestion contract.
const digestCopyBufferSize = 256 * 1024

// String returns the wire tag for the algorithm, as used in the "<alg>:<hex>"
// checksum representation.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmXXH3:
		return "xxh3_64"
	case AlgorithmBLAKE3:
		return "blake3"
	case AlgorithmSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid checksum algorithm: %d", a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	switch string(text) {
	case "xxh3_64":
		*a = AlgorithmXXH3
	case "blake3":
		*a = AlgorithmBLAKE3
	case "sha256":
		*a = AlgorithmSHA256
	default:
		return fmt.Errorf("unknown checksum algorithm: %q", text)
	}
	return nil
}

// Valid returns whether a is one of the three supported algorithms.
func (a Algorithm) Valid() bool {
	return a == AlgorithmXXH3 || a == AlgorithmBLAKE3 || a == AlgorithmSHA256
}

// ParseAlgorithm converts a wire tag into an Algorithm.
func ParseAlgorithm(text string) (Algorithm, error) {
	var a Algorithm
	if err := a.UnmarshalText([]byte(text)); err != nil {
		return 0, err
	}
	return a, nil
}

// Hasher is the capability set required of every checksum algorithm
// implementation: incremental update, finalization to a lowercase hex digest,
// and self-identification.
type Hasher interface {
	// Update feeds additional bytes into the running digest.
	Update(p []byte)
	// Sum finalizes the digest and returns it as lowercase hex, without an
	// algorithm prefix. Calling Sum does not invalidate the hasher for
	// inspection, but galdi never calls Update after Sum.
	Sum() string
	// Algorithm reports which algorithm this hasher implements.
	Algorithm() Algorithm
}

// New constructs a fresh Hasher for the given algorithm. It panics if alg is
// not one of the supported algorithms, since that indicates a programming
// error rather than a recoverable condition.
func New(alg Algorithm) Hasher {
	switch alg {
	case AlgorithmXXH3:
		return &xxh3Hasher{h: xxh3.New()}
	case AlgorithmBLAKE3:
		return &stdHasher{alg: AlgorithmBLAKE3, h: blake3.New()}
	case AlgorithmSHA256:
		return &stdHasher{alg: AlgorithmSHA256, h: sha256.New()}
	default:
		panic(fmt.Sprintf("unsupported checksum algorithm: %d", alg))
	}
}

// stdHasher adapts any hash.Hash (blake3, sha256) to the Hasher interface.
type stdHasher struct {
	alg Algorithm
	h   hash.Hash
}

func (s *stdHasher) Update(p []byte)      { s.h.Write(p) }
func (s *stdHasher) Sum() string          { return hex.EncodeToString(s.h.Sum(nil)) }
func (s *stdHasher) Algorithm() Algorithm { return s.alg }

// xxh3Hasher adapts zeebo/xxh3's 64-bit hasher to the Hasher interface. It is
// kept separate from stdHasher because xxh3.Hasher does not implement
// hash.Hash's Sum64-free surface the same way the stdlib hashers do.
type xxh3Hasher struct {
	h *xxh3.Hasher
}

func (x *xxh3Hasher) Update(p []byte) { x.h.Write(p) }

func (x *xxh3Hasher) Sum() string {
	var buf [8]byte
	sum := x.h.Sum64()
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:])
}

func (x *xxh3Hasher) Algorithm() Algorithm { return AlgorithmXXH3 }

// DigestFile streams the content of path through a fresh hasher for alg and
// returns the formatted "<alg>:<hex>" checksum. Empty files produce the
// algorithm's canonical empty-input digest, never a null or omitted value.
func DigestFile(path string, alg Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "unable to open file for hashing")
	}
	defer f.Close()

	h := New(alg)
	buf := make([]byte, digestCopyBufferSize)
	if _, err := io.CopyBuffer(writerFunc(h.Update), f, buf); err != nil {
		return "", errors.Wrap(err, "unable to read file content for hashing")
	}

	return Format(alg, h.Sum()), nil
}

// writerFunc adapts a func([]byte) to io.Writer so that io.CopyBuffer can
// stream directly into a Hasher without an intermediate copy.
type writerFunc func([]byte)

func (w writerFunc) Write(p []byte) (int, error) {
	w(p)
	return len(p), nil
}

// Format composes the canonical "<alg>:<hex>" checksum string.
func Format(alg Algorithm, hexDigest string) string {
	return alg.String() + ":" + hexDigest
}
