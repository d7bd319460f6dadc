package attachment

import (
	"fmt"
	"sync/atomic"
	"time"
)

var localSeq atomic.Uint64

// NewLocalID returns a 10-digit client-scoped id: the trailing six
// digits of the unix millisecond clock followed by a four-digit
// sequence number. Ids are unique for the lifetime of the process,
// not globally, and are never persisted.
func NewLocalID() string {
	millis := time.Now().UnixMilli() % 1_000_000
	seq := localSeq.Add(1) % 10_000
	return fmt.Sprintf("%06d%04d", millis, seq)
}
