package tn5250

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// Record framing. 5250 records travel as telnet binary data terminated by
// IAC EOR; a literal 0xFF inside the payload is doubled. The reader also
// swallows any in-band telnet option traffic that shows up between records,
// as if it never existed.

// FrameRecord escapes the payload and appends the IAC EOR terminator.
func FrameRecord(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	for _, b := range payload {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return append(out, IAC, EOR)
}

// UnframeRecord strips the IAC EOR terminator and collapses doubled IACs.
// It is the in-memory inverse of FrameRecord.
func UnframeRecord(framed []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(framed); i++ {
		b := framed[i]
		if b != IAC {
			out = append(out, b)
			continue
		}
		if i+1 >= len(framed) {
			return nil, fmt.Errorf("dangling IAC at end of record")
		}
		i++
		switch framed[i] {
		case IAC:
			out = append(out, IAC)
		case EOR:
			if i != len(framed)-1 {
				return nil, fmt.Errorf("data after EOR terminator")
			}
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected telnet command 0x%02X in framed record", framed[i])
		}
	}
	return nil, fmt.Errorf("record not EOR-terminated")
}

// RecordReader reads EOR-framed records from a connection, draining any
// bytes the negotiator over-read first.
type RecordReader struct {
	conn    net.Conn
	pending *bytes.Buffer
	// Timeout bounds a single ReadRecord call when the context carries no
	// earlier deadline.
	Timeout time.Duration
}

// NewRecordReader builds a reader over conn. pending may be nil.
func NewRecordReader(conn net.Conn, pending *bytes.Buffer) *RecordReader {
	if pending == nil {
		pending = &bytes.Buffer{}
	}
	return &RecordReader{conn: conn, pending: pending, Timeout: DefaultNegotiateTimeout}
}

// ReadRecord returns the next unescaped record payload, GDS header
// included, without the IAC EOR terminator.
func (r *RecordReader) ReadRecord(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(r.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	defer r.conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	var out []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if b != IAC {
			out = append(out, b)
			continue
		}
		cmd, err := r.readByte()
		if err != nil {
			return nil, err
		}
		switch cmd {
		case IAC:
			out = append(out, IAC)
		case EOR:
			return out, nil
		case DO, DONT, WILL, WONT:
			// Late option chatter inside the stream is discarded.
			if _, err := r.readByte(); err != nil {
				return nil, err
			}
		case SB:
			if err := r.skipSubnegotiation(); err != nil {
				return nil, err
			}
		default:
			// Single-byte commands (NOP, GA, ...) vanish.
		}
	}
}

func (r *RecordReader) skipSubnegotiation() error {
	for {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		if b != IAC {
			continue
		}
		next, err := r.readByte()
		if err != nil {
			return err
		}
		if next == SE {
			return nil
		}
	}
}

func (r *RecordReader) readByte() (byte, error) {
	if r.pending.Len() > 0 {
		return r.pending.ReadByte()
	}
	var buf [1]byte
	if _, err := io.ReadFull(r.conn, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteRecord frames the payload and writes it in one call.
func WriteRecord(conn net.Conn, payload []byte) error {
	if _, err := conn.Write(FrameRecord(payload)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// gdsHeader assembles the fixed 10-byte GDS header for a record whose body
// is bodyLen bytes long.
func gdsHeader(bodyLen int, opcode byte) []byte {
	h := make([]byte, GDSHeaderLen)
	binary.BigEndian.PutUint16(h[0:2], uint16(GDSHeaderLen+bodyLen))
	binary.BigEndian.PutUint16(h[2:4], GDSRecordType)
	h[4] = 0x04 // variable-header length
	h[5] = 0x00
	h[6] = 0x00 // flags
	h[7] = opcode
	// h[8], h[9] reserved
	return h
}

// stripGDSHeader validates the header and returns the opcode and body.
func stripGDSHeader(record []byte) (byte, []byte, error) {
	if len(record) < GDSHeaderLen {
		return 0, nil, fmt.Errorf("record too short for GDS header: %d bytes", len(record))
	}
	if rt := binary.BigEndian.Uint16(record[2:4]); rt != GDSRecordType {
		return 0, nil, fmt.Errorf("unexpected GDS record type 0x%04X", rt)
	}
	return record[7], record[GDSHeaderLen:], nil
}
