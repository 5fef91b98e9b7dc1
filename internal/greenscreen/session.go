package greenscreen

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"greenscreen/internal/catalog"
	"greenscreen/internal/logging"
	"greenscreen/internal/tn5250"
)

// Session is one live terminal connection to a host. It owns the socket,
// the reconstructed screen buffer and the record reader; it is used by a
// single task.
type Session struct {
	conn   net.Conn
	reader *tn5250.RecordReader
	screen *tn5250.Screen
	parser *tn5250.Parser
	cat    *catalog.Catalog
}

// Dial connects, optionally wraps TLS, and runs telnet negotiation. A dial
// failure and a negotiation failure are distinct conditions; callers map
// them to different error codes.
func Dial(ctx context.Context, conn Connection, port int, cat *catalog.Catalog) (*Session, error) {
	d := &net.Dialer{Timeout: conn.ConnectTimeout()}
	addr := net.JoinHostPort(conn.Host, fmt.Sprintf("%d", port))
	sock, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &connectError{err}
	}

	if conn.TLS != nil && conn.TLS.Enabled {
		tlsConf, err := tlsConfig(conn.TLS, conn.Host)
		if err != nil {
			sock.Close()
			return nil, &connectError{err}
		}
		tlsSock := tls.Client(sock, tlsConf)
		if err := tlsSock.HandshakeContext(ctx); err != nil {
			sock.Close()
			return nil, &connectError{fmt.Errorf("tls handshake: %w", err)}
		}
		sock = tlsSock
	}

	neg := tn5250.NewNegotiator(sock)
	if err := neg.NegotiateClient(); err != nil {
		sock.Close()
		return nil, &negotiateError{err}
	}
	logging.Get(logging.CategoryProtocol).Debugw("negotiated",
		"addr", addr, "terminal", neg.TerminalType)

	screen := tn5250.NewScreen()
	s := &Session{
		conn:   sock,
		reader: tn5250.NewRecordReader(sock, neg.Pending()),
		screen: screen,
		parser: tn5250.NewParser(screen),
		cat:    cat,
	}
	s.reader.Timeout = 30 * time.Second
	return s, nil
}

// tlsConfig builds the client TLS configuration; a ca_file pins the trust
// anchor set to exactly that file.
func tlsConfig(cfg *TLSConfig, host string) (*tls.Config, error) {
	out := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca_file %s holds no usable certificates", cfg.CAFile)
		}
		out.RootCAs = pool
	}
	return out, nil
}

// connectError and negotiateError let the engine map transport failures to
// their distinct error codes without string matching.
type connectError struct{ err error }

func (e *connectError) Error() string { return fmt.Sprintf("connect: %v", e.err) }
func (e *connectError) Unwrap() error { return e.err }

type negotiateError struct{ err error }

func (e *negotiateError) Error() string { return fmt.Sprintf("negotiate: %v", e.err) }
func (e *negotiateError) Unwrap() error { return e.err }

// Close releases the socket.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// ReadScreen consumes the next host record into the screen buffer.
func (s *Session) ReadScreen(ctx context.Context) error {
	record, err := s.reader.ReadRecord(ctx)
	if err != nil {
		return fmt.Errorf("read screen: %w", err)
	}
	if err := s.parser.Parse(record); err != nil {
		return fmt.Errorf("parse screen: %w", err)
	}
	return nil
}

// Screen exposes the current buffer.
func (s *Session) Screen() *tn5250.Screen { return s.screen }

// CurrentScreen identifies the buffer against the catalog, or nil.
func (s *Session) CurrentScreen() *catalog.Screen {
	return s.cat.Identify(s.screen)
}

// CurrentScreenID names the identified screen, or "unknown".
func (s *Session) CurrentScreenID() string {
	if def := s.CurrentScreen(); def != nil {
		return def.ID
	}
	return "unknown"
}

// TypeFields resolves each named value onto the current screen's input
// field of the same name, left-aligned and space-padded to the field
// length. The returned modified fields address the first data column.
func (s *Session) TypeFields(values map[string]string) ([]tn5250.ModifiedField, error) {
	def := s.CurrentScreen()
	if def == nil {
		return nil, fmt.Errorf("current screen is not in the catalog")
	}
	var out []tn5250.ModifiedField
	for _, f := range def.InputFields() {
		value, ok := values[f.Name]
		if !ok {
			continue
		}
		out = append(out, tn5250.ModifiedField{
			Row:   f.Row,
			Col:   f.Col + 1,
			Value: padTo(value, f.Length),
		})
	}
	for name := range values {
		f := def.FieldByName(name)
		if f == nil || !f.IsInput() {
			return nil, fmt.Errorf("no input field %q on screen %s", name, def.ID)
		}
	}
	return out, nil
}

// Submit sends an input record for the given AID and typed fields.
func (s *Session) Submit(aid byte, fields []tn5250.ModifiedField) error {
	cursorRow, cursorCol := s.screen.CursorRow, s.screen.CursorCol
	if len(fields) > 0 {
		cursorRow, cursorCol = fields[0].Row, fields[0].Col
	}
	framed, err := tn5250.BuildInputRecord(aid, cursorRow, cursorCol, fields)
	if err != nil {
		return fmt.Errorf("build input record: %w", err)
	}
	if _, err := s.conn.Write(framed); err != nil {
		return fmt.Errorf("send input record: %w", err)
	}
	return nil
}

// ScrapeField reads a named catalog field off the current screen, trailing
// spaces trimmed. The data begins one column past the attribute byte.
func (s *Session) ScrapeField(name string) (string, error) {
	def := s.CurrentScreen()
	if def == nil {
		return "", fmt.Errorf("current screen is not in the catalog")
	}
	f := def.FieldByName(name)
	if f == nil {
		return "", fmt.Errorf("no field %q on screen %s", name, def.ID)
	}
	return strings.TrimRight(s.screen.ReadText(f.Row, f.Col+1, f.Length), " "), nil
}

// padTo left-aligns v in a field of the given length.
func padTo(v string, length int) string {
	if len(v) >= length {
		return v[:length]
	}
	return v + strings.Repeat(" ", length-len(v))
}
