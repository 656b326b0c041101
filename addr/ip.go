package addr

import (
	"encoding/binary"
	"math/big"
	"net"
	"strings"
)

// ParseIP accepts dotted-decimal IPv4, canonical IPv6, or an address given
// as a base-10 integer string, and returns the parsed address in its
// 16-byte form. It fails with ErrInvalidAddress for anything else.
func ParseIP(s string) (net.IP, error) {
	s = strings.TrimSpace(s)
	if ip := net.ParseIP(s); ip != nil {
		return ip.To16(), nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, invalidAddress("ip", s)
	}

	switch {
	case n.BitLen() <= 32:
		var b [4]byte
		n.FillBytes(b[:])
		return net.IPv4(b[0], b[1], b[2], b[3]).To16(), nil
	case n.BitLen() <= 128:
		var b [16]byte
		n.FillBytes(b[:])
		return net.IP(b[:]), nil
	default:
		return nil, invalidAddress("ip", s)
	}
}

// CanonicalIP returns the canonical string form used as an IPRecord's key
// within its network's bucket: dotted-decimal for an address that has a
// valid IPv4 form, otherwise canonical IPv6.
func CanonicalIP(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.To16().String()
}

// V6Address returns the canonical 16-byte equality key for ip, used to
// compare addresses across their IPv4/IPv6 representations. Two net.IP
// values that print differently (dotted vs. v4-in-v6) but refer to the same
// address produce the same V6Address.
func V6Address(ip net.IP) [16]byte {
	var out [16]byte
	copy(out[:], ip.To16())
	return out
}

// LegacyOctets is the pre-v6address on-disk shape: {"octets":[a,b,c,d]}.
// Older IPRecords serialized this way must be re-coerced on read.
type LegacyOctets struct {
	Octets [4]byte `json:"octets"`
}

// CoerceLegacy converts a legacy octet-array record into a net.IP.
func CoerceLegacy(o LegacyOctets) net.IP {
	return net.IPv4(o.Octets[0], o.Octets[1], o.Octets[2], o.Octets[3]).To16()
}

// Compare orders two addresses the same way their big-endian byte
// representations would sort.
func Compare(a, b net.IP) int {
	a16, b16 := a.To16(), b.To16()
	for i := range a16 {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ErrOverflow is returned by Plus/Minus when the requested offset would
// carry the address outside its representable range.
type ErrOverflow struct{}

func (ErrOverflow) Error() string { return "address arithmetic overflowed" }

// Plus returns ip+offset, failing with ErrOverflow on wrap past
// 255.255.255.255. Only IPv4 addresses are supported: an address with no
// IPv4 form also fails with ErrOverflow.
func Plus(ip net.IP, offset uint32) (net.IP, error) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, ErrOverflow{}
	}
	base := binary.BigEndian.Uint32(v4)
	sum := base + offset
	if sum < base {
		return nil, ErrOverflow{}
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], sum)
	return net.IPv4(b[0], b[1], b[2], b[3]).To16(), nil
}

// Minus returns ip-offset, failing with ErrOverflow on underflow.
func Minus(ip net.IP, offset uint32) (net.IP, error) {
	v4 := ip.To4()
	if v4 == nil {
		return nil, ErrOverflow{}
	}
	base := binary.BigEndian.Uint32(v4)
	if offset > base {
		return nil, ErrOverflow{}
	}
	diff := base - offset
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], diff)
	return net.IPv4(b[0], b[1], b[2], b[3]).To16(), nil
}
