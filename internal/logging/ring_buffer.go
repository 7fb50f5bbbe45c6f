package logging

import (
	"strconv"
	"sync"
	"time"
)

// DefaultBufferSize is the default capacity of the ring buffer.
const DefaultBufferSize = 1000

// Stream names the pipe a captured line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
	// System marks lines the tray itself inserts, such as exit notices.
	System Stream = "system"
)

// LogEntry is one line of supervised process output.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Stream    Stream    `json:"stream"`
	Text      string    `json:"text"`
	// Seq increases by one per appended entry and survives eviction, so readers can ask for
	// "everything after N".
	Seq uint64 `json:"seq"`
}

// RingBuffer is a bounded buffer of output lines; the oldest entries are evicted first.
// Writes come from the control loop only; the lock lets the panel and the control API read
// concurrently.
type RingBuffer struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
	head     int  // Index where the next entry will be written
	count    int  // Number of entries currently in the buffer
	full     bool // Whether the buffer has wrapped around
	seq      uint64
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
// If capacity is 0 or negative, DefaultBufferSize is used.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &RingBuffer{
		entries:  make([]LogEntry, capacity),
		capacity: capacity,
	}
}

// Append stores an entry and returns it with its sequence number assigned.
func (rb *RingBuffer) Append(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	rb.seq++
	entry.Seq = rb.seq

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.capacity

	if rb.count < rb.capacity {
		rb.count++
	} else {
		rb.full = true
	}
	return entry
}

// GetEntries returns a copy of all entries in the buffer, oldest first.
func (rb *RingBuffer) GetEntries() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return []LogEntry{}
	}

	result := make([]LogEntry, rb.count)
	if rb.full {
		// Buffer has wrapped; oldest entry is at head position
		copied := copy(result, rb.entries[rb.head:])
		copy(result[copied:], rb.entries[:rb.head])
	} else {
		copy(result, rb.entries[:rb.count])
	}
	return result
}

// GetRecentEntries returns a copy of the N most recent entries, oldest first.
// If n is greater than the number of entries, all entries are returned.
func (rb *RingBuffer) GetRecentEntries(n int) []LogEntry {
	entries := rb.GetEntries()
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// EntriesAfter returns the retained entries whose sequence number is greater than seq.
func (rb *RingBuffer) EntriesAfter(seq uint64) []LogEntry {
	entries := rb.GetEntries()
	for i, e := range entries {
		if e.Seq > seq {
			return entries[i:]
		}
	}
	return []LogEntry{}
}

// Len returns the current number of entries in the buffer.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

// LastSeq returns the sequence number of the newest entry, 0 when nothing was appended yet.
func (rb *RingBuffer) LastSeq() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.seq
}

// Clear removes all entries from the buffer. Sequence numbers keep increasing.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.head = 0
	rb.count = 0
	rb.full = false
	for i := range rb.entries {
		rb.entries[i] = LogEntry{}
	}
}

// formatSource formats caller file and line into a source string.
func formatSource(file string, line int) string {
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' || file[i] == '\\' {
			short = file[i+1:]
			break
		}
	}
	return short + ":" + strconv.Itoa(line)
}
