package sessionlog

import "time"

// Entry is one captured log record.
type Entry struct {
	// Seq increases by one per appended entry and never resets for the
	// lifetime of a Log.
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Source    string            `json:"source,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// ringBuffer keeps the newest entries, overwriting the oldest when full.
// Not safe for concurrent use.
type ringBuffer struct {
	buf   []Entry
	head  int
	count int
}

// newRingBuffer clamps capacity to at least 1.
func newRingBuffer(capacity int) ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return ringBuffer{buf: make([]Entry, capacity)}
}

func (rb *ringBuffer) push(entry Entry) {
	bufCap := len(rb.buf)
	if rb.count < bufCap {
		rb.buf[(rb.head+rb.count)%bufCap] = entry
		rb.count++
		return
	}
	rb.buf[rb.head] = entry
	rb.head = (rb.head + 1) % bufCap
}

// snapshot returns the entries oldest first in a new slice.
func (rb *ringBuffer) snapshot() []Entry {
	if rb.count == 0 {
		return []Entry{}
	}
	out := make([]Entry, rb.count)
	first := min(len(rb.buf)-rb.head, rb.count)
	copy(out, rb.buf[rb.head:rb.head+first])
	if rest := rb.count - first; rest > 0 {
		copy(out[first:], rb.buf[:rest])
	}
	return out
}
