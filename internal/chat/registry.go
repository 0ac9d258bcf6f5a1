package chat

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Registry is the single serialization point for all shared chat state:
// the presence map, the message history, and the ack index. Every join,
// leave, broadcast, ack, and typing relay flows through its event channel
// and is applied by the Run goroutine, which gives every connected session
// the same total order of broadcasts and makes a new joiner's history
// replay a gapless prefix of that order.
type Registry struct {
	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	maxText int
	logger  *zap.Logger
}

func NewRegistry(buffer, maxText int, logger *zap.Logger) *Registry {
	if buffer <= 0 {
		buffer = 128
	}
	if maxText <= 0 {
		maxText = 512
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		events:  make(chan Event, buffer),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		maxText: maxText,
		logger:  logger,
	}
}

func (r *Registry) Events() chan<- Event {
	return r.events
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

// state is only ever touched by the Run goroutine.
type registryState struct {
	sessions map[string]*Session
	history  *History
	acks     *AckIndex
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	st := &registryState{
		sessions: make(map[string]*Session),
		history:  &History{},
		acks:     NewAckIndex(),
	}

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			eventType := ""

			switch ev.Type {
			case EventJoin:
				eventType = "join"
				r.handleJoin(st, ev)
				OnlineUsers.Set(float64(len(st.sessions)))
			case EventLeave:
				eventType = "leave"
				r.handleLeave(st, ev)
				OnlineUsers.Set(float64(len(st.sessions)))
			case EventMessage:
				eventType = "message"
				r.handleMessage(st, ev)
				HistoryLength.Set(float64(st.history.Len()))
				AckEntries.Set(float64(st.acks.Len()))
			case EventDelivered:
				eventType = "delivered"
				r.handleAck(st, ev, "DELIVERED_UPDATE")
			case EventRead:
				eventType = "read"
				r.handleAck(st, ev, "READ_UPDATE")
			case EventTyping:
				eventType = "typing"
				r.handleTyping(st, ev)
			}

			EventsTotal.WithLabelValues(eventType).Inc()
			EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) handleJoin(st *registryState, ev Event) {
	defer func() {
		// ReplyChan is only used for join.
		if ev.ReplyChan != nil {
			close(ev.ReplyChan)
		}
	}()

	username := ev.Username
	if _, taken := st.sessions[username]; taken {
		if ev.ReplyChan != nil {
			ev.ReplyChan <- ErrUsernameTaken
		}
		return
	}

	ev.Session.Username = username
	st.sessions[username] = ev.Session

	r.logger.Info("user joined",
		zap.String("username", username),
		zap.String("session", ev.Session.ID))

	// Handshake order matters to the client: welcome first, then the full
	// history, then the join notice and presence list everyone else sees too.
	r.send(ev.Session, "SYS:Welcome "+username+"! You are connected.")
	st.history.Replay(func(m Message) {
		r.send(ev.Session, m.Line())
	})
	r.broadcast(st, "SYS:"+username+" joined the chat.")
	r.broadcastUserList(st)

	if ev.ReplyChan != nil {
		ev.ReplyChan <- nil
	}
}

func (r *Registry) handleLeave(st *registryState, ev Event) {
	if ev.Session == nil || ev.Session.Username == "" {
		return
	}
	username := ev.Session.Username
	if cur, ok := st.sessions[username]; !ok || cur != ev.Session {
		return
	}
	delete(st.sessions, username)

	r.logger.Info("user left",
		zap.String("username", username),
		zap.String("session", ev.Session.ID))

	// Closing Out stops the writer goroutine gracefully.
	close(ev.Session.Out)
	r.broadcast(st, "SYS:"+username+" left the chat.")
	r.broadcastUserList(st)
}

// handleMessage is the compound append-record-fanout step; running it inside
// the Run goroutine makes it atomic with respect to every other broadcast.
func (r *Registry) handleMessage(st *registryState, ev Event) {
	if ev.Session == nil || ev.Session.Username == "" {
		return
	}
	msg := ev.Message
	if len(msg.Text) > r.maxText {
		msg.Text = msg.Text[:r.maxText]
	}

	st.history.Append(msg)
	st.acks.Record(msg.ID, msg.Sender)

	// Sender included: the sender's UI reconciles against the server's copy.
	line := msg.Line()
	for _, s := range st.sessions {
		r.send(s, line)
	}
}

func (r *Registry) handleAck(st *registryState, ev Event, tag string) {
	if ev.Session == nil || ev.Session.Username == "" {
		return
	}
	sender, ok := st.acks.Sender(ev.MsgID)
	if !ok {
		// Unknown id: deliberately silent.
		return
	}
	target, ok := st.sessions[sender]
	if !ok {
		// Sender has disconnected; the update is dropped, not queued.
		return
	}
	r.send(target, tag+":"+ev.MsgID+":"+ev.Session.Username)
}

func (r *Registry) handleTyping(st *registryState, ev Event) {
	if ev.Session == nil || ev.Session.Username == "" {
		return
	}
	state := "STOP"
	if ev.Start {
		state = "START"
	}
	line := "TYPING:" + ev.Session.Username + ":" + state
	for name, s := range st.sessions {
		if name == ev.Session.Username {
			continue
		}
		r.send(s, line)
	}
}

func (r *Registry) broadcast(st *registryState, line string) {
	for _, s := range st.sessions {
		r.send(s, line)
	}
}

func (r *Registry) broadcastUserList(st *registryState) {
	names := make([]string, 0, len(st.sessions))
	for name := range st.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	r.broadcast(st, "USERLIST:"+strings.Join(names, ","))
}

func (r *Registry) send(s *Session, line string) {
	// Non-blocking send isolates slow or wedged clients: the line is dropped
	// for that one recipient and everyone else still gets it.
	select {
	case s.Out <- line:
	default:
		DroppedLines.Inc()
		r.logger.Warn("dropping line for slow client",
			zap.String("username", s.Username),
			zap.String("session", s.ID))
	}
}
