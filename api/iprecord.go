package api

import (
	"net"

	"github.com/jasonbking/sdc-napi/addr"
)

// BelongsToType names the kind of entity that owns a NIC or IP.
type BelongsToType string

const (
	BelongsToZone   BelongsToType = "zone"
	BelongsToServer BelongsToType = "server"
	BelongsToOther  BelongsToType = "other"
)

// IPRecord is the persisted state of a single bound or reserved address.
// One lives per (network, address) pair in the network's IP bucket.
type IPRecord struct {
	Address     net.IP // v6-normalized; see V6Address for the equality key
	NetworkUUID string
	Reserved    bool

	BelongsToUUID string
	BelongsToType BelongsToType
	OwnerUUID     string

	// Free marks the soft-free state: the address has been released by its
	// last owning NIC but the record itself is retained (not deleted) so
	// that ownership history and the next-free scan have something to
	// reason about. A free, unreserved IPRecord is a candidate for the
	// next-free scan (ipScanner.next).
	Free bool

	Version Version
}

// Key returns the canonical address string used as this record's key
// within its network's bucket.
func (r *IPRecord) Key() string {
	return addr.CanonicalIP(r.Address)
}

// Provisionable reports whether this record may be handed out by the next-
// free search or claimed by a caller-named owner. A reserved IP is never
// provisionable by the scan (the scan excludes Reserved records directly;
// see ipScanner.next) but may still be bound explicitly by whoever already
// holds it. An IP already owned by someone other than requester is not
// provisionable by anyone else. requesterUUID is compared against
// OwnerUUID, the same field applyIPOwnership stamps from BaseParams.OwnerUUID
// and every caller passes in here (c.Base.OwnerUUID) — not BelongsToUUID,
// which names the owning zone/server instance rather than the account.
func (r *IPRecord) Provisionable(requesterUUID string) bool {
	if r.BelongsToUUID != "" {
		return r.OwnerUUID == requesterUUID
	}
	return !r.Reserved
}
