package tn5250

import (
	"bytes"
	"fmt"
	"net"
	"time"
)

// DefaultNegotiateTimeout bounds each single-byte read while options are
// being settled.
const DefaultNegotiateTimeout = 15 * time.Second

// optState tracks one telnet option in one direction.
type optState struct {
	requested bool // we sent WILL/DO for it
	settled   bool // the peer confirmed it
}

// Negotiator drives the telnet option exchange a 5250 session requires:
// BINARY and END-OF-RECORD in both directions plus the TERMINAL-TYPE
// subnegotiation. The same type serves both sides of the wire; the client
// offers a terminal type, the server asks for one.
//
// Bytes that arrive during negotiation but are not telnet commands are
// pushed into the pending buffer, which the record reader must drain before
// touching the socket again.
type Negotiator struct {
	conn        net.Conn
	ReadTimeout time.Duration

	// Client identity sent in the TERMINAL-TYPE reply, e.g. "IBM-3179-2"
	// optionally followed by "@DEVICENAME".
	TerminalType string
	DeviceName   string

	// Populated on the server side from the client's IS reply.
	PeerTerminalType string

	pending bytes.Buffer

	local    map[byte]*optState // our WILL, peer answers DO
	remote   map[byte]*optState // our DO, peer answers WILL
	ttSent   bool               // client: IS reply sent
	ttRecv   bool               // server: IS reply received
	isServer bool
}

// NewNegotiator wraps a freshly accepted or dialed connection.
func NewNegotiator(conn net.Conn) *Negotiator {
	return &Negotiator{
		conn:         conn,
		ReadTimeout:  DefaultNegotiateTimeout,
		TerminalType: "IBM-3179-2",
		local:        map[byte]*optState{OptBinary: {}, OptEndOfRecord: {}},
		remote:       map[byte]*optState{OptBinary: {}, OptEndOfRecord: {}},
	}
}

// Pending returns host bytes over-read during negotiation. The record
// reader consumes these before reading the socket.
func (n *Negotiator) Pending() *bytes.Buffer { return &n.pending }

// NegotiateClient performs the client side: offer TERMINAL-TYPE, answer the
// SEND subnegotiation, then settle END-OF-RECORD and BINARY both ways.
func (n *Negotiator) NegotiateClient() error {
	n.isServer = false
	if err := n.send(IAC, WILL, OptTerminalType); err != nil {
		return err
	}
	if err := n.requestOptions(); err != nil {
		return err
	}
	return n.pump(func() bool { return n.ttSent && n.optionsSettled() })
}

// NegotiateServer performs the server side: request a terminal type and
// initiate the symmetric BINARY / END-OF-RECORD requests.
func (n *Negotiator) NegotiateServer() error {
	n.isServer = true
	if err := n.send(IAC, DO, OptTerminalType); err != nil {
		return err
	}
	if err := n.requestOptions(); err != nil {
		return err
	}
	return n.pump(func() bool { return n.ttRecv && n.optionsSettled() })
}

func (n *Negotiator) requestOptions() error {
	for _, opt := range []byte{OptEndOfRecord, OptBinary} {
		if err := n.send(IAC, WILL, opt); err != nil {
			return err
		}
		n.local[opt].requested = true
		if err := n.send(IAC, DO, opt); err != nil {
			return err
		}
		n.remote[opt].requested = true
	}
	return nil
}

func (n *Negotiator) optionsSettled() bool {
	for _, opt := range []byte{OptBinary, OptEndOfRecord} {
		if !n.local[opt].settled || !n.remote[opt].settled {
			return false
		}
	}
	return true
}

// pump reads and dispatches telnet commands until done reports completion.
func (n *Negotiator) pump(done func() bool) error {
	for !done() {
		b, err := n.readByte()
		if err != nil {
			return fmt.Errorf("telnet negotiation read: %w", err)
		}
		if b != IAC {
			// Host data arriving before negotiation completes; keep it for
			// the record reader.
			n.pending.WriteByte(b)
			continue
		}
		cmd, err := n.readByte()
		if err != nil {
			return fmt.Errorf("telnet negotiation read: %w", err)
		}
		switch cmd {
		case IAC:
			n.pending.WriteByte(IAC)
		case DO, DONT, WILL, WONT:
			opt, err := n.readByte()
			if err != nil {
				return fmt.Errorf("telnet negotiation read: %w", err)
			}
			if err := n.handleOption(cmd, opt); err != nil {
				return err
			}
		case SB:
			if err := n.handleSubnegotiation(); err != nil {
				return err
			}
		case EOR:
			// Record boundary observed mid-negotiation; it belongs to the
			// pending stream.
			n.pending.WriteByte(IAC)
			n.pending.WriteByte(EOR)
		default:
			// NOP, GA and friends carry no payload and are ignored.
		}
	}
	return nil
}

func (n *Negotiator) handleOption(cmd, opt byte) error {
	switch cmd {
	case DO:
		if opt == OptTerminalType && !n.isServer {
			// The server wants our terminal type; the IS reply follows its
			// SEND subnegotiation.
			return nil
		}
		if st, ok := n.local[opt]; ok {
			if !st.requested {
				st.requested = true
				if err := n.send(IAC, WILL, opt); err != nil {
					return err
				}
			}
			st.settled = true
			return nil
		}
		return n.send(IAC, WONT, opt)
	case WILL:
		if opt == OptTerminalType && n.isServer {
			// Client agrees to report its type; ask for it.
			return n.send(IAC, SB, OptTerminalType, TerminalTypeSend, IAC, SE)
		}
		if st, ok := n.remote[opt]; ok {
			if !st.requested {
				st.requested = true
				if err := n.send(IAC, DO, opt); err != nil {
					return err
				}
			}
			st.settled = true
			return nil
		}
		return n.send(IAC, DONT, opt)
	case DONT:
		if _, required := n.local[opt]; required || opt == OptTerminalType {
			return fmt.Errorf("peer refused required option 0x%02X (DONT)", opt)
		}
		return n.send(IAC, WONT, opt)
	case WONT:
		if _, required := n.remote[opt]; required || opt == OptTerminalType {
			return fmt.Errorf("peer refused required option 0x%02X (WONT)", opt)
		}
		return n.send(IAC, DONT, opt)
	}
	return nil
}

// handleSubnegotiation consumes IAC SB ... IAC SE. Only TERMINAL-TYPE is
// meaningful here; other subnegotiations are read and dropped.
func (n *Negotiator) handleSubnegotiation() error {
	var body []byte
	for {
		b, err := n.readByte()
		if err != nil {
			return fmt.Errorf("telnet subnegotiation read: %w", err)
		}
		if b == IAC {
			next, err := n.readByte()
			if err != nil {
				return fmt.Errorf("telnet subnegotiation read: %w", err)
			}
			if next == SE {
				break
			}
			if next == IAC {
				body = append(body, IAC)
				continue
			}
			return fmt.Errorf("unexpected IAC 0x%02X inside subnegotiation", next)
		}
		body = append(body, b)
	}
	if len(body) < 2 || body[0] != OptTerminalType {
		return nil
	}
	switch body[1] {
	case TerminalTypeSend:
		reply := n.TerminalType
		if n.DeviceName != "" {
			reply += "@" + n.DeviceName
		}
		msg := append([]byte{IAC, SB, OptTerminalType, TerminalTypeIs}, []byte(reply)...)
		msg = append(msg, IAC, SE)
		if _, err := n.conn.Write(msg); err != nil {
			return fmt.Errorf("telnet terminal-type reply: %w", err)
		}
		n.ttSent = true
	case TerminalTypeIs:
		n.PeerTerminalType = string(body[2:])
		n.ttRecv = true
	}
	return nil
}

func (n *Negotiator) readByte() (byte, error) {
	if n.ReadTimeout > 0 {
		if err := n.conn.SetReadDeadline(time.Now().Add(n.ReadTimeout)); err != nil {
			return 0, err
		}
		defer n.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}
	var buf [1]byte
	if _, err := n.conn.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (n *Negotiator) send(b ...byte) error {
	if _, err := n.conn.Write(b); err != nil {
		return fmt.Errorf("telnet negotiation write: %w", err)
	}
	return nil
}
