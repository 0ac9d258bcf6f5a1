package chat

import "go.uber.org/zap"

// StartOutboundWriter drains out onto the connection until the channel is
// closed or a write fails. The returned channel is closed when the writer
// goroutine has exited, so callers can wait for queued lines to flush before
// closing the connection.
func StartOutboundWriter(conn LineConn, out <-chan string, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range out {
			// Best-effort. If the connection breaks, just stop the writer.
			if err := conn.WriteLine(line); err != nil {
				logger.Debug("outbound write failed", zap.Error(err))
				return
			}
		}
	}()
	return done
}
