// Package filament carries the cross-cutting pieces of the server toolkit:
// request id generation and the shared buffer pool. The protocol, routing and
// connection machinery live in the subpackages.
package filament

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ID is a process-unique 128-bit identifier attached to every request.
type ID struct {
	Hi uint64
	Lo uint64
}

// String renders the id as 32 lowercase hex digits.
func (id ID) String() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:], id.Lo)
	return hex.EncodeToString(b[:])
}

// IsZero reports whether the id is the zero value.
func (id ID) IsZero() bool { return id.Hi == 0 && id.Lo == 0 }

var (
	randomIDs atomic.Bool

	epochMillis atomic.Uint64
	counter     atomic.Uint64
)

// UseRandomIDs switches id generation to OS randomness (UUIDv4 bits).
// Off by default; the default scheme is the millisecond epoch in the high 64
// bits and a monotonic counter in the low 64 bits, which sorts by creation
// within a single process.
func UseRandomIDs(on bool) { randomIDs.Store(on) }

// NextID returns the next identifier.
//
// On the counter path the low word is a strictly increasing atomic counter,
// so ids from one process never collide and always order. The epoch word is
// latched on first use so a clock step cannot reorder ids.
func NextID() ID {
	if randomIDs.Load() {
		u := uuid.New()
		return ID{
			Hi: binary.BigEndian.Uint64(u[:8]),
			Lo: binary.BigEndian.Uint64(u[8:]),
		}
	}

	ms := epochMillis.Load()
	if ms == 0 {
		now := uint64(time.Now().UnixMilli())
		if !epochMillis.CompareAndSwap(0, now) {
			now = epochMillis.Load()
		}
		ms = now
	}

	return ID{Hi: ms, Lo: counter.Add(1)}
}
