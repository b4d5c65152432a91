package chatsy

import "sync"

// History is the shared, ordered log of a conversation. It is passed by
// reference between the Coordinator, the transport, and any external
// inspector; every access is serialized by an internal lock.
//
// The lock is only ever held for a single read or append. Holders that panic
// inside a critical section poison the history: every later access fails with
// ErrHistoryPoisoned, mirroring the behavior callers would otherwise get from
// a lock left in an unknown state.
type History struct {
	mu       sync.Mutex
	poisoned bool
	messages []Message
}

// NewHistory returns an empty history, optionally seeded with messages
// (e.g. a system prompt).
func NewHistory(seed ...Message) *History {
	h := &History{}
	if len(seed) > 0 {
		h.messages = append(h.messages, seed...)
	}
	return h
}

// Do runs fn inside the history's critical section with direct access to the
// message slice. fn must not block or perform I/O: the lock is meant to be
// held for a single read or append only. A panic in fn poisons the history
// and is re-raised.
func (h *History) Do(fn func(messages *[]Message)) error {
	h.mu.Lock()
	if h.poisoned {
		h.mu.Unlock()
		return ErrHistoryPoisoned
	}
	defer func() {
		if p := recover(); p != nil {
			h.poisoned = true
			h.mu.Unlock()
			panic(p)
		}
		h.mu.Unlock()
	}()
	fn(&h.messages)
	return nil
}

// Push appends one or more messages, preserving their order.
func (h *History) Push(messages ...Message) error {
	return h.Do(func(log *[]Message) {
		*log = append(*log, messages...)
	})
}

// Messages returns a copy of the full log. Readers may observe a conversation
// mid-turn: new messages appended, assistant reply not yet.
func (h *History) Messages() ([]Message, error) {
	var out []Message
	err := h.Do(func(log *[]Message) {
		out = make([]Message, len(*log))
		copy(out, *log)
	})
	return out, err
}

// Last returns the most recent message, or ok=false on an empty history.
func (h *History) Last() (msg Message, ok bool, err error) {
	err = h.Do(func(log *[]Message) {
		if n := len(*log); n > 0 {
			msg, ok = (*log)[n-1], true
		}
	})
	return msg, ok, err
}

// Len returns the number of stored messages.
func (h *History) Len() (int, error) {
	var n int
	err := h.Do(func(log *[]Message) {
		n = len(*log)
	})
	return n, err
}

// Clear drops all stored messages.
func (h *History) Clear() error {
	return h.Do(func(log *[]Message) {
		*log = nil
	})
}
