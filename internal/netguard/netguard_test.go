package netguard

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.1", false},
		{"169.254.1.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"8.8.8.8", true},
		{"93.184.216.34", true},
		{"2001:4860:4860::8888", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(net.ParseIP(tc.ip)), tc.ip)
	}
	assert.False(t, Allowed(nil))
}

func TestGuardControlBlocksLoopback(t *testing.T) {
	err := guardControl("tcp4", "127.0.0.1:80", nil)
	assert.ErrorContains(t, err, "blocked")

	assert.NoError(t, guardControl("tcp4", "8.8.8.8:443", nil))
}

func TestDialerModes(t *testing.T) {
	assert.NotNil(t, Dialer(false).Control)
	assert.Nil(t, Dialer(true).Control)
}
