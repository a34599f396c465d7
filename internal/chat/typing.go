package chat

import (
	"sync"
	"time"
)

// DefaultTypingExpiry is how long after the latest typing-start the
// indicator clears itself.
const DefaultTypingExpiry = 3 * time.Second

// direction keys a typing indicator by who is composing and which party
// the signal is aimed at.
type direction struct {
	userID string
	toRole Role
}

type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// Typing tracks per-user composing state with a timed auto-clear. Each
// typing-start cancels any pending expiry and arms a fresh one, so the
// clear fires a fixed interval after the latest keystroke rather than
// the first. Only the latest state is meaningful; superseded timers
// never fire.
type Typing struct {
	mu      sync.Mutex
	pending map[direction]armedTimer
	gen     uint64
	expiry  time.Duration
	notify  func(userID string, toRole Role, isTyping bool)
}

// NewTyping creates an indicator that clears expiry after the latest
// typing-start. A non-positive expiry selects DefaultTypingExpiry. The
// notify callback must not block.
func NewTyping(expiry time.Duration, notify func(userID string, toRole Role, isTyping bool)) *Typing {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	return &Typing{
		pending: make(map[direction]armedTimer),
		expiry:  expiry,
		notify:  notify,
	}
}

// Set records a typing transition and notifies the opposite party. A
// true transition (re)arms the expiry timer; false clears immediately.
func (t *Typing) Set(userID string, toRole Role, isTyping bool) {
	key := direction{userID: userID, toRole: toRole}

	t.mu.Lock()
	if a, ok := t.pending[key]; ok {
		a.timer.Stop()
		delete(t.pending, key)
	}
	if isTyping {
		t.gen++
		gen := t.gen
		timer := time.AfterFunc(t.expiry, func() { t.expired(key, gen) })
		t.pending[key] = armedTimer{timer: timer, gen: gen}
	}
	t.mu.Unlock()

	t.notify(userID, toRole, isTyping)
}

// expired fires the auto-clear for a timer generation, unless that
// generation has been superseded or cancelled in the meantime.
func (t *Typing) expired(key direction, gen uint64) {
	t.mu.Lock()
	a, ok := t.pending[key]
	if !ok || a.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.pending, key)
	t.mu.Unlock()

	t.notify(key.userID, key.toRole, false)
}

// IsTyping reports whether an indicator is currently armed.
func (t *Typing) IsTyping(userID string, toRole Role) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[direction{userID: userID, toRole: toRole}]
	return ok
}

// Stop cancels every pending expiry without notifying anyone.
func (t *Typing) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, a := range t.pending {
		a.timer.Stop()
		delete(t.pending, key)
	}
}
