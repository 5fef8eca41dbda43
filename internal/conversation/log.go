package conversation

import "sync"

// Log is an append-only conversation owned by its caller. Listeners
// registered with OnAppend are called after each append, outside the lock.
type Log struct {
	mu        sync.RWMutex
	messages  []Message
	listeners []func(Message)
}

func NewLog(seed ...Message) *Log {
	l := &Log{}
	l.messages = append(l.messages, seed...)
	return l
}

func (l *Log) Append(m Message) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	listeners := append([]func(Message){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(m)
	}
}

// Messages returns a copy of the log contents in order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Last returns the most recent message and false if the log is empty.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

func (l *Log) OnAppend(fn func(Message)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}
