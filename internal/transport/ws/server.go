package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"breedcraft.ai/internal/protocol"
	"breedcraft.ai/internal/sim/loop"
)

// Server speaks the pasture UI protocol over websocket and forwards requests
// into the simulation loop.
type Server struct {
	loop *loop.Loop
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(l *loop.Loop, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		loop: l,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == uuid.Nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeUI {
				continue
			}
			var req protocol.UIRequestMsg
			_ = json.Unmarshal(msg, &req)
			if err := protocol.ValidateUIRequest(msg); err != nil {
				rejectTo(out, req.ReqID, s.loop.CurrentTick(), err)
				continue
			}
			select {
			case s.loop.Inbox() <- loop.UIEnvelope{PlayerID: playerID, Req: req}:
			case <-ctx.Done():
			}
		}

		s.loop.Leave(playerID, out)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (uuid.UUID, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return uuid.Nil, nil
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return uuid.Nil, nil
	}
	if err := protocol.ValidateHello(msg); err != nil {
		closeWith(conn, "bad HELLO")
		return uuid.Nil, nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return uuid.Nil, nil
	}

	out := make(chan []byte, 64)
	respCh := make(chan loop.JoinResponse, 1)
	s.loop.Join() <- loop.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(resp.Welcome.PlayerID)
	if err != nil {
		s.log.Printf("join %q: bad player id %q", hello.PlayerName, resp.Welcome.PlayerID)
		return uuid.Nil, nil
	}
	s.log.Printf("player %s (%s) connected", hello.PlayerName, id)
	return id, out
}

// rejectTo answers a malformed request without involving the loop.
func rejectTo(out chan []byte, reqID string, tick uint64, err error) {
	b, _ := json.Marshal(protocol.UIUpdateMsg{
		Type:            protocol.TypeUIUpdate,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Code:            protocol.ErrProtoBadRequest,
		Message:         err.Error(),
		Tick:            tick,
	})
	select {
	case out <- b:
	default:
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
