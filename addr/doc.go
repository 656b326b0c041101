// Package addr implements the address codec: bidirectional canonicalization
// of MAC integers and IPv4/IPv6 addresses, the unified 16-byte equality key
// used across the store, and the bounded arithmetic the provisioners use to
// walk an address range without overflowing it.
//
// Grounded on the address-pool arithmetic in dm-vev-qdt/internal/ipam and
// dm-vev-qdt/internal/iputil (uint32/net.IP conversions, CIDR bounds), and
// on the MAC-string handling conventions used throughout
// aws-amazon-vpc-cni-k8s/pkg for hardware addresses.
package addr
