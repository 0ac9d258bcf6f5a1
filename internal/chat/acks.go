package chat

// AckIndex maps a message id to the username that sent it, so delivery and
// read receipts can be routed back to the author. Entries are kept for the
// lifetime of the process; growth is visible through the AckEntries gauge.
// Owned by the registry goroutine.
type AckIndex struct {
	senders map[string]string
}

func NewAckIndex() *AckIndex {
	return &AckIndex{senders: make(map[string]string)}
}

func (a *AckIndex) Record(id, sender string) {
	a.senders[id] = sender
}

// Sender returns the username that sent the message with the given id.
func (a *AckIndex) Sender(id string) (string, bool) {
	s, ok := a.senders[id]
	return s, ok
}

func (a *AckIndex) Len() int { return len(a.senders) }
