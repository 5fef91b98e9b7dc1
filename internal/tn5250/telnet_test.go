package tn5250

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tcpPair returns two ends of a loopback TCP connection. Unlike net.Pipe,
// TCP buffers writes, which the negotiation handshake relies on when both
// sides open by sending their requests.
func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err == nil {
			server = c
		}
	}()
	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	<-done
	require.NotNil(t, server)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestNegotiateClientServer(t *testing.T) {
	clientConn, serverConn := tcpPair(t)

	client := NewNegotiator(clientConn)
	client.ReadTimeout = 2 * time.Second
	client.DeviceName = "QPADEV01"

	server := NewNegotiator(serverConn)
	server.ReadTimeout = 2 * time.Second

	errCh := make(chan error, 1)
	go func() { errCh <- server.NegotiateServer() }()

	require.NoError(t, client.NegotiateClient())
	require.NoError(t, <-errCh)

	assert.Equal(t, "IBM-3179-2@QPADEV01", server.PeerTerminalType)
}

func TestNegotiateRefusedRequiredOptionIsFatal(t *testing.T) {
	clientConn, serverConn := tcpPair(t)

	go func() {
		buf := make([]byte, 64)
		serverConn.SetReadDeadline(time.Now().Add(time.Second))
		serverConn.Read(buf)
		serverConn.Write([]byte{IAC, DONT, OptBinary})
	}()

	client := NewNegotiator(clientConn)
	client.ReadTimeout = 2 * time.Second
	err := client.NegotiateClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused required option")
}

func TestNegotiateRefusesUnsolicitedOptions(t *testing.T) {
	clientConn, serverConn := tcpPair(t)

	client := NewNegotiator(clientConn)
	client.ReadTimeout = 300 * time.Millisecond

	// Offer an option the client never negotiates (ECHO, 0x01). The client
	// must reply IAC DONT 0x01.
	_, err := serverConn.Write([]byte{IAC, WILL, 0x01})
	require.NoError(t, err)

	// Negotiation cannot complete against this silent peer; the refusal is
	// what we are after.
	_ = client.NegotiateClient()

	var got []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !containsSeq(got, []byte{IAC, DONT, 0x01}) {
		serverConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _ := serverConn.Read(buf)
		got = append(got, buf[:n]...)
	}
	assert.True(t, containsSeq(got, []byte{IAC, DONT, 0x01}),
		"expected IAC DONT ECHO in % X", got)
}

func TestNegotiatorForwardsDataBytesToPending(t *testing.T) {
	clientConn, serverConn := tcpPair(t)

	// Drain everything the client writes so its sends never block.
	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := serverConn.Read(buf); err != nil {
				return
			}
		}
	}()

	// Interleave record data with the acks the client needs.
	script := [][]byte{
		{0x7E},
		{IAC, DO, OptTerminalType},
		{IAC, SB, OptTerminalType, TerminalTypeSend, IAC, SE},
		{0x7F},
		{IAC, DO, OptEndOfRecord, IAC, WILL, OptEndOfRecord},
		{IAC, DO, OptBinary, IAC, WILL, OptBinary},
	}
	go func() {
		for _, chunk := range script {
			serverConn.Write(chunk)
		}
	}()

	client := NewNegotiator(clientConn)
	client.ReadTimeout = 2 * time.Second
	require.NoError(t, client.NegotiateClient())
	assert.Equal(t, []byte{0x7E, 0x7F}, client.Pending().Bytes())
}

func TestAIDNameMappings(t *testing.T) {
	aid, err := AIDForName("Enter")
	require.NoError(t, err)
	assert.Equal(t, AIDEnter, aid)

	aid, err = AIDForName("PageDown")
	require.NoError(t, err)
	assert.Equal(t, AIDRollUp, aid)

	aid, err = AIDForName("PageUp")
	require.NoError(t, err)
	assert.Equal(t, AIDRollDown, aid)

	_, err = AIDForName("F13")
	assert.Error(t, err)

	assert.Equal(t, "Enter", AIDName(AIDEnter))
	assert.Equal(t, "F3", AIDName(AIDF3))
	assert.Equal(t, "0x00", AIDName(0x00))
}

func containsSeq(haystack, needle []byte) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
