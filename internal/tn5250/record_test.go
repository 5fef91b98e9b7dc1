package tn5250

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameUnframeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x02, 0x03},
		{0xFF},
		{0xFF, 0xFF, 0x00, 0xFF},
		{},
	}
	for _, p := range payloads {
		framed := FrameRecord(p)
		got, err := UnframeRecord(framed)
		require.NoError(t, err)
		assert.Equal(t, append([]byte{}, p...), append([]byte{}, got...))
	}
}

func TestFrameDoublesIAC(t *testing.T) {
	framed := FrameRecord([]byte{0xFF})
	assert.Equal(t, []byte{0xFF, 0xFF, IAC, EOR}, framed)
}

func TestUnframeRejectsMalformed(t *testing.T) {
	_, err := UnframeRecord([]byte{0x01, 0x02})
	assert.Error(t, err)
	_, err = UnframeRecord([]byte{0x01, IAC})
	assert.Error(t, err)
}

func TestRecordReaderDrainsPendingFirst(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	neg := NewNegotiator(client)
	neg.Pending().Write(FrameRecord([]byte{0xAA, 0xBB}))

	r := NewRecordReader(client, neg.Pending())
	rec, err := r.ReadRecord(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, rec)
}

func TestRecordReaderDiscardsInbandTelnet(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		// Option chatter interleaved with record bytes must vanish.
		server.Write([]byte{0x10, IAC, WILL, OptBinary, 0x20, IAC, 0xF1, 0x30, IAC, EOR})
	}()

	r := NewRecordReader(client, nil)
	r.Timeout = 2 * time.Second
	rec, err := r.ReadRecord(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x20, 0x30}, rec)
}

func TestRecordReaderHonorsContextDeadline(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewRecordReader(client, nil)
	_, err := r.ReadRecord(ctx)
	require.Error(t, err)
}

func TestGDSHeaderRoundTrip(t *testing.T) {
	body := []byte{1, 2, 3, 4}
	rec := append(gdsHeader(len(body), OpcodePutGet), body...)
	op, got, err := stripGDSHeader(rec)
	require.NoError(t, err)
	assert.Equal(t, OpcodePutGet, op)
	assert.Equal(t, body, got)
}

func TestStripGDSHeaderRejectsWrongType(t *testing.T) {
	rec := make([]byte, GDSHeaderLen)
	rec[2], rec[3] = 0xDE, 0xAD
	_, _, err := stripGDSHeader(rec)
	assert.Error(t, err)

	_, _, err = stripGDSHeader([]byte{0x00})
	assert.Error(t, err)
}
