package analytics

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/playhead-dev/playhead/internal/clock"
)

// WriterSink streams events as newline-delimited JSON.
// Thread-safe for concurrent use.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	clk clock.Clock
}

// NewWriterSink creates a sink writing NDJSON to w.
func NewWriterSink(w io.Writer, clk clock.Clock) *WriterSink {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &WriterSink{w: w, clk: clk}
}

func (s *WriterSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := json.NewEncoder(s.w).Encode(fill(e, s.clk.Now())); err != nil {
		log.Printf("analytics write error: %v", err)
	}
}
