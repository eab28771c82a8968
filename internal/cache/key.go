// Package cache memoizes engine results under content-addressed keys.
//
// A key is the BLAKE3 keyed hash of the CBOR Core Deterministic Encoding of
// every input a computation reads. Same inputs, same bytes, same key; any
// changed input (a new check-in, a new response, another day) yields a new
// key, so entries never need explicit invalidation. Stale entries simply
// stop being asked for and age out under the size bound.
package cache

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Key is a 32-byte BLAKE3 digest.
type Key [32]byte

// String returns the lowercase hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Domain is a 32-byte BLAKE3 key that separates hash spaces: metrics and
// synthesis fingerprints never collide even for identical bytes. The
// values are the zero-padded ASCII of the domain name.
type Domain [32]byte

var (
	MetricsDomain = Domain{
		't', 'e', 'a', 'm', 'p', 'u', 'l', 's', 'e', '.', 'c', 'a', 'c', 'h', 'e', '.',
		'm', 'e', 't', 'r', 'i', 'c', 's', 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	SynthesisDomain = Domain{
		't', 'e', 'a', 'm', 'p', 'u', 'l', 's', 'e', '.', 'c', 'a', 'c', 'h', 'e', '.',
		's', 'y', 'n', 't', 'h', 'e', 's', 'i', 's', 0, 0, 0, 0, 0, 0, 0,
	}
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, shortest integers, no indefinite lengths.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

// KeyFor fingerprints v in the given domain.
func KeyFor(d Domain, v any) (Key, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return Key{}, fmt.Errorf("cache: encode fingerprint: %w", err)
	}
	h, err := blake3.NewKeyed(d[:])
	if err != nil {
		return Key{}, fmt.Errorf("cache: keyed hash: %w", err)
	}
	_, _ = h.Write(data)
	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}
