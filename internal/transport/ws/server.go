// Package ws serves the observer/control protocol over websocket. Observers
// receive a STATE frame per tick; CMD messages are forwarded into the world
// loop and answered with a RESULT. The server never touches world state
// directly, only its channels.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"orbitfield/internal/protocol"
	"orbitfield/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
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

		out := s.handshake(conn)
		if out == nil {
			return
		}

		if !s.world.Subscribe(out) {
			return
		}
		defer s.world.Unsubscribe(out)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
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
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}

			res, ok := s.world.Submit(world.Command{
				Kind:  cmd.Cmd,
				Count: cmd.Count,
				Slot:  cmd.Slot,
			})
			if !ok {
				// World loop is gone; drop the connection.
				cancel()
				return
			}

			result := protocol.ResultMsg{
				Type: protocol.TypeResult,
				Cmd:  cmd.Cmd,
				OK:   res.Err == nil,
				Tick: res.Tick,
			}
			if res.Err != nil {
				result.Error = res.Err.Error()
			}
			select {
			case out <- protocol.Encode(result):
			default:
				// Result dropped for a slow client; the next STATE frame
				// reflects the outcome anyway.
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) chan []byte {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil
	}

	cfg := s.world.Describe()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldID:         cfg.ID,
		TickRateHz:      cfg.TickRateHz,
		Seed:            cfg.Seed,
		Tick:            s.world.CurrentTick(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, protocol.Encode(welcome)); err != nil {
		return nil
	}

	// Room for a few ticks of backlog; afterTick drops frames beyond that.
	return make(chan []byte, 8)
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}
