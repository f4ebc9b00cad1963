package server

import (
	"net"
	"strings"
	"time"

	"github.com/Akshat-Diwedi/nuke-kv/server/common"
	"github.com/Akshat-Diwedi/nuke-kv/server/handler"
	"github.com/Akshat-Diwedi/nuke-kv/server/protocol"
)

// handleClient runs one session: read a frame, tokenize, dispatch, reply.
// Requests within a session are strictly serialized; any framing error
// (including an over-cap declared length) ends the session silently.
func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()

	for {
		payload, err := protocol.ReadFrame(conn, common.MaxPayloadSize)
		if err != nil {
			if err == protocol.ErrPayloadTooLarge {
				s.logger.Debugf("client %s declared an oversized payload, closing", conn.RemoteAddr())
			}
			return
		}

		var start time.Time
		if s.debug.Load() {
			start = time.Now()
		}

		args := protocol.ParseCommandLine(string(payload))
		var res handler.Result
		if len(args) == 0 {
			res = handler.Result{Code: handler.StatusBadRequest, Text: "-ERR empty command"}
		} else {
			verb := strings.ToUpper(args[0])
			switch verb {
			case "QUIT":
				protocol.WriteFrame(conn, []byte("+OK Bye"))
				return
			case "PING":
				res = handler.Result{Code: handler.StatusOK, Text: "+PONG"}
			default:
				res = <-s.pool.dispatch(verb, args[1:])
			}
		}

		text := res.Text
		if s.debug.Load() && !strings.HasPrefix(text, "Stress Test") {
			text += " (" + common.FormatDuration(time.Since(start)) + ")"
		}

		if err := protocol.WriteFrame(conn, []byte(text)); err != nil {
			return
		}
	}
}
