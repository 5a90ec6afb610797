package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"craftkit.ai/internal/mctext"
	"craftkit.ai/internal/mctext/obfuscate"
	"craftkit.ai/internal/protocol"
)

const (
	writeWait       = 5 * time.Second
	defaultReadWait = 60 * time.Second

	defaultMaxTextRunes = 4096
)

type Options struct {
	Animator     obfuscate.Config
	MaxTextRunes int
	// ReadWait bounds the silence from a client, pongs included. Pings go out at 9/10 of it.
	ReadWait time.Duration
}

// Server streams live previews of styled text. Each connection owns one animator
// that runs for the lifetime of the socket.
type Server struct {
	opts Options
	log  *log.Logger

	active atomic.Int64

	upgrader websocket.Upgrader
}

func NewServer(opts Options, logger *log.Logger) *Server {
	if opts.MaxTextRunes <= 0 {
		opts.MaxTextRunes = defaultMaxTextRunes
	}
	if opts.ReadWait <= 0 {
		opts.ReadWait = defaultReadWait
	}
	s := &Server{
		opts: opts,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// Active is the number of open preview connections.
func (s *Server) Active() int64 { return s.active.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			if s.log != nil {
				s.log.Printf("preview: upgrade: %v", err)
			}
			return
		}
		defer conn.Close()
		s.active.Add(1)
		defer s.active.Add(-1)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		anim := obfuscate.New(s.opts.Animator)
		anim.Start(ctx)
		defer anim.Stop()

		// Latest text wins; errors queue up to a small bound and drop after that.
		updates := make(chan []mctext.Run, 1)
		errs := make(chan protocol.ErrorMsg, 8)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writeLoop(ctx, cancel, conn, anim, updates, errs)
		}()

		readWait := s.opts.ReadWait
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readWait))
		})

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			runs, perr := s.decodePreview(msg)
			if perr != nil {
				select {
				case errs <- *perr:
				default:
				}
				continue
			}
			select {
			case <-updates:
			default:
			}
			updates <- runs
		}
		<-writerDone
	}
}

func (s *Server) decodePreview(msg []byte) ([]mctext.Run, *protocol.ErrorMsg) {
	bad := func(m string) *protocol.ErrorMsg {
		e := protocol.NewError(protocol.ErrBadRequest, m)
		return &e
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil, bad(err.Error())
	}
	if base.Type != protocol.TypePreview {
		return nil, bad("unsupported message type " + base.Type)
	}
	if !protocol.CompatibleVersion(base.ProtocolVersion) {
		return nil, bad("bad protocol_version " + base.ProtocolVersion)
	}
	text := gjson.GetBytes(msg, "text")
	if text.Type != gjson.String {
		return nil, bad("text must be a string")
	}
	if n := utf8.RuneCountInString(text.Str); n > s.opts.MaxTextRunes {
		e := protocol.NewError(protocol.ErrTooLarge, "text exceeds preview limit")
		return nil, &e
	}
	return mctext.Tokenize(text.Str), nil
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, anim *obfuscate.Animator, updates <-chan []mctext.Run, errs <-chan protocol.ErrorMsg) {
	var (
		runs    []mctext.Run
		seq     uint64
		animate bool
	)
	send := func(v any) bool {
		if err := writeJSON(conn, v); err != nil {
			cancel()
			return false
		}
		return true
	}
	frame := func() bool {
		seq++
		return send(protocol.NewFrame(seq, anim.Render(runs)))
	}
	ping := time.NewTicker(s.opts.ReadWait * 9 / 10)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cancel()
				return
			}
		case e := <-errs:
			if !send(e) {
				return
			}
		case runs = <-updates:
			animate = obfuscate.HasObfuscated(runs)
			if !frame() {
				return
			}
		case <-anim.Frames():
			if !animate {
				continue
			}
			if !frame() {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
