package chat

// History is the append-only log of every broadcast chat message, replayed
// in arrival order to each newly joined session. It is owned by the registry
// goroutine and therefore needs no locking of its own.
type History struct {
	messages []Message
}

func (h *History) Append(m Message) {
	h.messages = append(h.messages, m)
}

func (h *History) Len() int { return len(h.messages) }

// Replay invokes fn for every message in arrival order.
func (h *History) Replay(fn func(Message)) {
	for _, m := range h.messages {
		fn(m)
	}
}
