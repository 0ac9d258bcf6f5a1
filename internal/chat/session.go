package chat

import (
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleSession runs the protocol state machine for one connection: the
// JOIN handshake, then the command loop, then teardown. Teardown runs
// exactly once on quit, read error, or end-of-stream, and tolerates a
// session whose handshake never completed.
func HandleSession(s *Session, events chan<- Event, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	writerDone := StartOutboundWriter(s.Conn, s.Out, logger)

	joined := false
	defer func() {
		if joined {
			events <- Event{Type: EventLeave, Session: s}
		} else {
			// The registry never saw this session; stop the writer ourselves.
			close(s.Out)
		}
		// Let queued lines flush before the transport goes away.
		<-writerDone
		_ = s.Conn.Close()
	}()

	// Handshake: the first line must be JOIN:<username>.
	first, err := s.Conn.ReadLine()
	if err != nil {
		return
	}
	if !strings.HasPrefix(first, "JOIN:") {
		reply(s, "SYS:Invalid handshake. Use JOIN:<username>")
		return
	}
	username := strings.TrimSpace(strings.TrimPrefix(first, "JOIN:"))
	if username == "" {
		username = fallbackUsername(s.Conn.RemoteAddr())
	}

	joinReply := make(chan error, 1)
	events <- Event{Type: EventJoin, Session: s, Username: username, ReplyChan: joinReply}
	if err := <-joinReply; err != nil {
		reply(s, "SYS:Username "+username+" is already taken.")
		return
	}
	joined = true

	// Command loop.
	for {
		line, err := s.Conn.ReadLine()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "QUIT"):
			return
		case strings.HasPrefix(line, "MSG:"):
			// MSG:<id>:<text>; the text may itself contain colons.
			parts := strings.SplitN(line, ":", 3)
			if len(parts) < 3 {
				reply(s, "SYS:Bad MSG format. Use MSG:<msgId>:<text>")
				continue
			}
			events <- Event{
				Type:    EventMessage,
				Session: s,
				Message: Message{ID: parts[1], Sender: username, Text: parts[2]},
			}
		case strings.HasPrefix(line, "DELIVERED:"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "DELIVERED:"))
			if id != "" {
				events <- Event{Type: EventDelivered, Session: s, MsgID: id}
			}
		case strings.HasPrefix(line, "READ:"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "READ:"))
			if id != "" {
				events <- Event{Type: EventRead, Session: s, MsgID: id}
			}
		case strings.HasPrefix(line, "TYPING:"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "TYPING:"))
			switch {
			case strings.EqualFold(arg, "START"):
				events <- Event{Type: EventTyping, Session: s, Start: true}
			case strings.EqualFold(arg, "STOP"):
				events <- Event{Type: EventTyping, Session: s, Start: false}
			}
		default:
			reply(s, "SYS:Unknown command")
		}
	}
}

// reply queues a line for this session only, without involving the registry.
func reply(s *Session, line string) {
	select {
	case s.Out <- line:
	default:
		DroppedLines.Inc()
	}
}

// fallbackUsername synthesizes a name for clients that join with an empty
// username, derived from the remote port when the transport exposes one.
func fallbackUsername(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.Port > 0 {
		return "User" + strconv.Itoa(tcp.Port)
	}
	if addr != nil {
		if _, port, err := net.SplitHostPort(addr.String()); err == nil && port != "" {
			return "User" + port
		}
	}
	return "User" + uuid.NewString()[:8]
}
