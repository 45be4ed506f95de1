package hashtools

// content ids for stored artifacts

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/cpu"
)

const HashLength = 28

// MaxIDLength is longest id MakeID can produce.
// floor(log36(2^232 - 1)) + 1 = 45
const MaxIDLength = 45

type HashType byte

const (
	_ HashType = iota // skip first to start with non-0

	SHA2_224    // faster where SHA2 instructions are available
	BLAKE2b_224 // fast on most 64bit CPUs
	BLAKE3_224  // fast with AVX2, truncated to 224 bits

	hashTypeMax = iota - 1
)

var hashTypeNames = [hashTypeMax]string{
	"sha2-224",
	"blake2b-224",
	"blake3-224",
}

func (t HashType) String() string {
	if t >= 1 && t <= hashTypeMax {
		return hashTypeNames[t-1]
	}
	return fmt.Sprintf("HashType(%d)", byte(t))
}

// ParseHashType accepts names printed by String and "auto" (returns 0).
func ParseHashType(s string) (HashType, error) {
	s = strings.ToLower(s)
	if s == "" || s == "auto" {
		return 0, nil
	}
	for i, n := range hashTypeNames {
		if s == n || s == strings.TrimSuffix(n, "-224") {
			return HashType(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown hash type %q", s)
}

func (t *HashType) UnmarshalText(b []byte) (err error) {
	*t, err = ParseHashType(string(b))
	return
}

var hasherFactories = [hashTypeMax]func() hash.Hash{
	sha256.New224,
	func() hash.Hash { x, _ := blake2b.New(HashLength, nil); return x },
	func() hash.Hash { return blake3.New() },
}

var hashCtxPools [hashTypeMax]sync.Pool

type hashCtx struct {
	h       hash.Hash
	copyBuf *[32 * 1024]byte
	x       big.Int
	sumBuf  [1 + 32]byte // type byte + up to 256 bit sum
	strBuf  [MaxIDLength]byte
}

func getHashCtx(t HashType) *hashCtx {
	s, _ := hashCtxPools[t-1].Get().(*hashCtx)
	if s != nil {
		s.h.Reset()
	} else {
		s = &hashCtx{
			h:       hasherFactories[t-1](),
			copyBuf: new([32 * 1024]byte),
		}
	}
	return s
}

// AutoHashType picks fastest hash for this CPU.
func AutoHashType() HashType {
	// afaik only arm64 gets guaranteed gain from SHA2 instructions
	if cpu.ARM64.HasSHA2 {
		return SHA2_224
	}
	return BLAKE3_224
}

// MakeID hashes r and returns textual id usable as filename.
// t == 0 picks AutoHashType.
func MakeID(r io.Reader, t HashType) (s string, err error) {
	if t == 0 {
		t = AutoHashType()
	}
	if t > hashTypeMax {
		return "", fmt.Errorf("invalid hash type %d", t)
	}

	hs := getHashCtx(t)
	defer hashCtxPools[t-1].Put(hs)

	// first byte - hash type, so ids of different hashes never collide
	hs.sumBuf[0] = byte(t)
	_, err = io.CopyBuffer(hs.h, r, hs.copyBuf[:])
	if err != nil {
		return
	}
	hs.h.Sum(hs.sumBuf[1:][:0])

	// base36 of type byte + truncated hash
	hs.x.SetBytes(hs.sumBuf[:1+HashLength])
	xb := hs.x.Append(hs.strBuf[:0], 36)

	// flip (we want front bits to be more variable)
	for i, j := 0, len(xb)-1; i < j; i, j = i+1, j-1 {
		xb[i], xb[j] = xb[j], xb[i]
	}

	return string(xb), nil
}

func MakeIDBytes(b []byte, t HashType) (string, error) {
	return MakeID(bytes.NewReader(b), t)
}

// ValidID checks that s looks like something MakeID could return.
func ValidID(s string) bool {
	if len(s) == 0 || len(s) > MaxIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
