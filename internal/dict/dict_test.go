package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedAccessors(t *testing.T) {
	d := New(map[string]string{
		"count":   " 42 ",
		"flag":    "Yes",
		"balance": "$1,234.50",
		"junk":    "n/a",
	})

	n, ok := d.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	b, ok := d.Bool("flag")
	assert.True(t, ok)
	assert.True(t, b)

	f, ok := d.Decimal("balance")
	assert.True(t, ok)
	assert.InDelta(t, 1234.50, f, 0.0001)

	_, ok = d.Int("junk")
	assert.False(t, ok)
	_, ok = d.Bool("junk")
	assert.False(t, ok)
	_, ok = d.Decimal("missing")
	assert.False(t, ok)
}

func TestResolvePlaceholders(t *testing.T) {
	d := New(map[string]string{"user_id": "TESTUSER", "loan_number": "1000001"})

	assert.Equal(t, "user TESTUSER loan 1000001",
		d.Resolve("user {{user_id}} loan {{loan_number}}"))

	// Unknown placeholders survive verbatim.
	assert.Equal(t, "{{nope}} x TESTUSER", d.Resolve("{{nope}} x {{user_id}}"))

	// Idempotent when values introduce no new placeholders.
	once := d.Resolve("{{user_id}}-{{nope}}")
	assert.Equal(t, once, d.Resolve(once))
}

func TestResolveMap(t *testing.T) {
	d := New(map[string]string{"a": "1"})
	got := d.ResolveMap(map[string]string{"x": "{{a}}", "y": "plain"})
	assert.Equal(t, map[string]string{"x": "1", "y": "plain"}, got)
}

func TestSensitiveKeys(t *testing.T) {
	assert.True(t, IsSensitiveKey("password"))
	assert.True(t, IsSensitiveKey("PASSWORD"))
	assert.True(t, IsSensitiveKey("user_passcode"))
	assert.True(t, IsSensitiveKey("Pin"))
	assert.False(t, IsSensitiveKey("user_id"))
	assert.True(t, IsSensitiveKey("pint")) // substring match errs on the safe side
}

func TestRedact(t *testing.T) {
	d := New(map[string]string{"password": "BADPASS", "user_id": "BOB"})
	msg := d.Redact("login failed for BOB with BADPASS")
	assert.NotContains(t, msg, "BADPASS")
	assert.Contains(t, msg, "BOB")
}

func TestCloneIsIndependent(t *testing.T) {
	d := New(map[string]string{"k": "v"})
	c := d.Clone()
	c.Set("k", "other")
	assert.Equal(t, "v", d.Get("k"))
}
