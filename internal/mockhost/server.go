package mockhost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"greenscreen/internal/catalog"
	"greenscreen/internal/logging"
	"greenscreen/internal/tn5250"
)

// DefaultPort is the traditional TN5250 port.
const DefaultPort = 5250

// Server accepts TN5250 clients and runs one session goroutine per
// connection. The catalog, navigation config and data store are shared
// read-only; each session owns its socket, state and evaluator.
type Server struct {
	Addr    string // bind address, default loopback
	Port    int    // default 5250
	Screens *catalog.Store
	Nav     *NavigationConfig
	Store   *DataStore
	// SessionTimeout bounds one read of an input record; an idle session
	// past it is dropped.
	SessionTimeout time.Duration

	listener net.Listener
}

// NewServer wires a server from its read-only collaborators.
func NewServer(screens *catalog.Store, nav *NavigationConfig, store *DataStore) *Server {
	return &Server{
		Addr:           "127.0.0.1",
		Port:           DefaultPort,
		Screens:        screens,
		Nav:            nav,
		Store:          store,
		SessionTimeout: 5 * time.Minute,
	}
}

// ListenAndServe binds the listener and serves until ctx is cancelled, at
// which point the accept loop exits and outstanding sessions are awaited.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.Addr, s.Port))
	if err != nil {
		return fmt.Errorf("mock host listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop over an existing listener. The listener is
// closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listener = ln
	log := logging.Get(logging.CategoryServer)
	log.Infow("mock host listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)

	// Closing the listener is what actually unblocks Accept.
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("mock host accept: %w", err)
			}
			log.Debugw("session accepted", "remote", conn.RemoteAddr().String())
			g.Go(func() error {
				// Closing the socket is what unblocks a session parked in a
				// read when the server drains.
				stop := context.AfterFunc(ctx, func() { conn.Close() })
				defer stop()
				defer conn.Close()
				s.serveSession(ctx, conn)
				return nil
			})
		}
	})

	return g.Wait()
}

// ListenerAddr returns the bound listener address, useful after binding
// port 0.
func (s *Server) ListenerAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// serveSession drives one connection: negotiate, render the initial
// screen, then loop reading input records and walking transitions.
// Session errors end the session but never the server.
func (s *Server) serveSession(ctx context.Context, conn net.Conn) {
	log := logging.Get(logging.CategorySession)
	remote := conn.RemoteAddr().String()

	neg := tn5250.NewNegotiator(conn)
	if err := neg.NegotiateServer(); err != nil {
		log.Warnw("negotiation failed", "remote", remote, "error", err)
		return
	}
	log.Debugw("negotiated", "remote", remote, "terminal", neg.PeerTerminalType)

	cat := s.Screens.Current()
	sess := NewSession(s.Nav.InitialScreen)
	eval := NewEvaluator(s.Nav, s.Store)
	reader := tn5250.NewRecordReader(conn, neg.Pending())
	reader.Timeout = s.SessionTimeout

	if err := s.render(conn, cat, sess, ""); err != nil {
		log.Warnw("initial render failed", "remote", remote, "error", err)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		record, err := reader.ReadRecord(ctx)
		if err != nil {
			// Client went away or the server is draining; either way the
			// session is over.
			log.Debugw("session closed", "remote", remote, "error", err)
			return
		}
		in, err := tn5250.ParseInputRecord(record)
		if err != nil {
			log.Warnw("bad input record", "remote", remote, "error", err)
			return
		}

		def, ok := cat.Get(sess.CurrentScreen)
		if !ok {
			log.Errorw("session on unknown screen", "remote", remote, "screen", sess.CurrentScreen)
			return
		}
		input := ExtractFields(def, in)
		result := eval.Evaluate(sess, in.AID, input)
		if !result.Success {
			log.Debugw("transition rejected",
				"remote", remote, "screen", sess.CurrentScreen,
				"aid", tn5250.AIDName(in.AID), "error", result.Error)
			if err := s.render(conn, cat, sess, result.Error); err != nil {
				return
			}
			continue
		}

		s.applyTransition(sess, result, input)
		log.Debugw("transition applied",
			"remote", remote, "screen", sess.CurrentScreen, "user", sess.UserID)
		if err := s.render(conn, cat, sess, ""); err != nil {
			return
		}
	}
}

// applyTransition merges data updates, hydrates related records and tracks
// the authentication flag across the screen switch.
func (s *Server) applyTransition(sess *Session, result TransitionResult, input map[string]string) {
	wasInitial := sess.CurrentScreen == s.Nav.InitialScreen

	sess.Data.Merge(result.DataUpdates)

	// When a loan number becomes defined, pull the whole record in so
	// display screens can render it.
	if loan := sess.Data.Get("loan_number"); loan != "" && s.Store != nil {
		if rec, ok := s.Store.Loan(loan); ok {
			sess.Data.Merge(rec)
		}
	}

	sess.CurrentScreen = result.Target
	if result.Target == s.Nav.InitialScreen {
		// Signing off: identity and data do not survive, the socket does.
		sess.ResetIdentity()
		return
	}
	if wasInitial {
		sess.IsAuthenticated = true
		if u := strings.TrimSpace(input["user_id"]); u != "" {
			sess.UserID = u
		}
	}
}

func (s *Server) render(conn net.Conn, cat *catalog.Catalog, sess *Session, errorMsg string) error {
	def, ok := cat.Get(sess.CurrentScreen)
	if !ok {
		return fmt.Errorf("screen %q not in catalog", sess.CurrentScreen)
	}
	framed, err := RenderScreen(def, sess.Data, errorMsg)
	if err != nil {
		return err
	}
	if _, err := conn.Write(framed); err != nil {
		return fmt.Errorf("write screen: %w", err)
	}
	return nil
}
