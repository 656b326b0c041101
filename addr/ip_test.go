package addr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIP(t *testing.T) {
	ip, err := ParseIP("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", CanonicalIP(ip))

	ip, err = ParseIP("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("2001:db8::1").To16(), ip)

	ip, err = ParseIP("167772165") // 10.0.0.5 as an integer
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", CanonicalIP(ip))

	_, err = ParseIP("not-an-address")
	require.Error(t, err)
	assert.True(t, IsInvalidAddress(err))
}

func TestCanonicalIPPrefersV4(t *testing.T) {
	v4 := net.ParseIP("192.168.1.1")
	assert.Equal(t, "192.168.1.1", CanonicalIP(v4))
	assert.Equal(t, "192.168.1.1", CanonicalIP(v4.To16()))
}

func TestV6AddressEqualityAcrossForms(t *testing.T) {
	dotted := net.ParseIP("10.0.0.5")
	inV6 := dotted.To16()
	assert.Equal(t, V6Address(dotted), V6Address(inV6))
}

func TestCoerceLegacy(t *testing.T) {
	ip := CoerceLegacy(LegacyOctets{Octets: [4]byte{10, 0, 0, 5}})
	assert.Equal(t, "10.0.0.5", CanonicalIP(ip))
}

func TestCompare(t *testing.T) {
	a := net.ParseIP("10.0.0.1")
	b := net.ParseIP("10.0.0.2")
	assert.Equal(t, -1, Compare(a, b))
	assert.Equal(t, 1, Compare(b, a))
	assert.Equal(t, 0, Compare(a, a))
}

func TestPlusMinus(t *testing.T) {
	start := net.ParseIP("10.0.0.0")

	next, err := Plus(start, 5)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", CanonicalIP(next))

	back, err := Minus(next, 5)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0", CanonicalIP(back))

	_, err = Minus(net.ParseIP("0.0.0.0"), 1)
	require.Error(t, err)
	assert.IsType(t, ErrOverflow{}, err)

	max := net.IPv4(255, 255, 255, 255)
	_, err = Plus(max, 1)
	require.Error(t, err)

	_, err = Plus(net.ParseIP("2001:db8::1"), 1)
	require.Error(t, err)
}
