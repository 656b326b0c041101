package allocator

import (
	"math/rand"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// NICBuilder is stage 5 of the driver pipeline (spec §4.6): it produces the
// NIC record to put, consulting c.Err the same way a Provisioner does.
// macSupplied and randomMAC (spec §4.5) are its two implementations.
type NICBuilder interface {
	Build(c *Ctx) (*api.NICRecord, error)
}

// fetchOrNewNIC loads the current NICRecord at mac, or constructs a fresh
// zero-version one if none exists yet.
func fetchOrNewNIC(c *Ctx, mac uint64) (*api.NICRecord, error) {
	val, version, err := c.Store.Get(api.NICBucket, addr.MACKey(mac))
	switch {
	case store.IsNotFound(err):
		return &api.NICRecord{MAC: mac}, nil
	case err != nil:
		return nil, err
	}
	rec := *(val.(*api.NICRecord))
	rec.Version = version
	return &rec, nil
}

// applyNICParams stamps rec with the validated request parameters and, if
// an address was chosen this iteration, its IP linkage (spec §4.5: "in
// both variants, if an IP was selected this iteration, the resulting
// NIC's IP linkage and network are set from it").
func applyNICParams(rec *api.NICRecord, c *Ctx) {
	b := c.Base
	rec.Primary = b.Primary
	rec.BelongsToUUID = b.BelongsToUUID
	rec.BelongsToType = b.BelongsToType
	rec.OwnerUUID = b.OwnerUUID
	rec.CheckOwner = b.CheckOwner
	rec.Model = b.Model
	rec.VLANID = b.VLANID
	rec.NICTag = b.NICTag
	rec.NICTagsProvided = b.NICTagsProvided
	rec.AllowDHCPSpoofing = b.AllowDHCPSpoofing
	rec.AllowIPSpoofing = b.AllowIPSpoofing
	rec.AllowMACSpoofing = b.AllowMACSpoofing
	rec.AllowRestrictedTraffic = b.AllowRestrictedTraffic
	rec.AllowUnfilteredPromisc = b.AllowUnfilteredPromisc
	rec.CNUUID = b.CNUUID
	rec.Underlay = b.Underlay
	if b.State != "" {
		rec.State = b.State
	} else if rec.State == "" {
		rec.State = api.NICProvisioning
	}

	if len(c.IPs) > 0 {
		ip := c.IPs[0]
		rec.IPAddress = ip.Key()
		rec.NetworkUUID = ip.NetworkUUID
	}
}

// macSuppliedBuilder implements macSupplied: the caller named the MAC.
type macSuppliedBuilder struct {
	mac uint64
}

// NewMACSuppliedBuilder returns the NICBuilder used when the request
// carries a caller-chosen mac.
func NewMACSuppliedBuilder(mac uint64) NICBuilder {
	return &macSuppliedBuilder{mac: mac}
}

func (b *macSuppliedBuilder) Build(c *Ctx) (*api.NICRecord, error) {
	key := addr.MACKey(b.mac)
	if versionConflictOn(c.Err, api.NICBucket, key) {
		return nil, ErrMACDuplicate()
	}

	// Unlike addUpdatedNic, this never fetches an existing record: a
	// caller-supplied MAC is always a create attempt (ExpectVersion=nil),
	// never a merge into whatever currently lives at that key. MAC
	// uniqueness is absolute — there is no ownership-based re-claim the
	// way IPProvision allows for an address you already own — so any
	// existing record at this key, found via the commit conflict above,
	// is always a duplicate, never something to reuse.
	rec := &api.NICRecord{MAC: b.mac}
	applyNICParams(rec, c)
	return rec, nil
}

// randomMACBuilder implements randomMAC: a suffix is generated within the
// configured OUI, retrying on collision up to retries times.
type randomMACBuilder struct {
	oui     addr.OUI
	retries int
	rng     *rand.Rand

	// chosen is the MAC settled on in a prior iteration, reused across
	// iterations unless that exact key lost a commit race.
	chosen uint64
}

// NewRandomMACBuilder returns the NICBuilder used when the request did not
// name a MAC. requested, if non-zero, seeds the first attempt with a
// caller-preferred value still to be validated against the store (spec
// §4.5: "if the request already carries a MAC ... reuse the MAC").
func NewRandomMACBuilder(oui addr.OUI, retries int, rng *rand.Rand, requested uint64) NICBuilder {
	return &randomMACBuilder{oui: oui, retries: retries, rng: rng, chosen: requested}
}

func (b *randomMACBuilder) Build(c *Ctx) (*api.NICRecord, error) {
	if b.chosen != 0 && !versionConflictOn(c.Err, api.NICBucket, addr.MACKey(b.chosen)) {
		// Put as a create (ExpectVersion=nil): if another NIC has taken this
		// MAC since, the commit fails with a conflict on its key and the
		// next iteration draws a fresh suffix.
		rec := &api.NICRecord{MAC: b.chosen}
		applyNICParams(rec, c)
		return rec, nil
	}

	suffix := uint32(b.rng.Int63n(int64(addr.SuffixSpan)))
	for attempt := 0; attempt < b.retries; attempt++ {
		mac := b.oui.Base() | uint64(suffix)
		_, _, err := c.Store.Get(api.NICBucket, addr.MACKey(mac))
		switch {
		case store.IsNotFound(err):
			b.chosen = mac
			rec := &api.NICRecord{MAC: mac}
			applyNICParams(rec, c)
			return rec, nil
		case err != nil:
			return nil, err
		}

		suffix++
		if suffix >= addr.SuffixSpan {
			suffix = uint32(b.rng.Int63n(int64(addr.SuffixSpan)))
		}
	}

	return nil, ErrNoFreeMAC()
}
