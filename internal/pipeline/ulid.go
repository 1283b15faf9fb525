package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Dependency-free ULID generator: 26 Crockford Base32 characters,
// 48-bit millisecond timestamp prefix plus 80 bits of randomness.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	// Embed sequence in bytes 6-7 to ensure uniqueness within same ms.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeBase32(b)
}

// encodeBase32 encodes 128 bits as 26 Crockford characters. The first
// character carries only the top 3 bits so the output aligns at 130 bits.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	out[0] = crockford[b[0]>>5]
	pos := 1

	// The remaining 125 bits divide evenly into 25 characters.
	acc := uint32(b[0]) & 31
	nbits := 5
	for i := 1; i < len(b); i++ {
		acc = acc<<8 | uint32(b[i])
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			out[pos] = crockford[(acc>>uint(nbits))&31]
			pos++
			acc &= (1 << uint(nbits)) - 1
		}
	}
	return string(out[:])
}
