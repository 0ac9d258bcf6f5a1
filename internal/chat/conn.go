package chat

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// LineConn is the minimal transport surface a session needs: one text line
// in, one text line out. Writes happen only from the session's writer
// goroutine, so implementations do not need to be write-concurrent.
type LineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	RemoteAddr() net.Addr
	Close() error
}

type tcpConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewTCPConn wraps a stream connection in the newline-delimited protocol
// framing.
func NewTCPConn(conn net.Conn) LineConn {
	return &tcpConn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}

func (c *tcpConn) WriteLine(line string) error {
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *tcpConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *tcpConn) Close() error { return c.conn.Close() }

type wsConn struct {
	conn *websocket.Conn
}

// NewWebsocketConn adapts a websocket connection to the line protocol: each
// text frame carries exactly one protocol line.
func NewWebsocketConn(conn *websocket.Conn) LineConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				return "", io.EOF
			}
			return "", fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *wsConn) Close() error { return c.conn.Close() }
