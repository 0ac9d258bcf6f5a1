package chat

import "github.com/google/uuid"

// Session is the server-side handle for one connected client. The Conn is
// owned by the session's handler goroutine; the registry only ever touches
// the Out channel.
type Session struct {
	ID       string
	Username string
	Conn     LineConn
	Out      chan string // outbound lines drained by the writer goroutine
}

func NewSession(conn LineConn, buffer int) *Session {
	if buffer <= 0 {
		buffer = 64
	}
	return &Session{
		ID:   uuid.NewString(),
		Conn: conn,
		Out:  make(chan string, buffer),
	}
}

// Message is a single chat broadcast. Immutable once appended to the history.
type Message struct {
	ID     string
	Sender string
	Text   string
}

// Line renders the message in the broadcast wire format MSG:<id>:<sender>:<text>.
func (m Message) Line() string {
	return "MSG:" + m.ID + ":" + m.Sender + ":" + m.Text
}

type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventMessage
	EventDelivered
	EventRead
	EventTyping
)

type Event struct {
	Type      EventType
	Session   *Session
	Username  string     // join only
	Message   Message    // chat message events
	MsgID     string     // delivered/read acks
	Start     bool       // typing events
	ReplyChan chan error // used by join to ack success/failure
}

var ErrUsernameTaken = errorString("username_taken")

type errorString string

func (e errorString) Error() string { return string(e) }
