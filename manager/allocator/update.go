package allocator

import (
	"context"
	"net"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// UpdateParams carries the caller-supplied subset of mutable NIC fields
// (spec §6); nil pointers mean "leave as-is", distinguishing that from an
// explicit clear.
type UpdateParams struct {
	MAC uint64

	IP          *string
	NetworkUUID *string

	OwnerUUID              *string
	BelongsToUUID          *string
	BelongsToType          *api.BelongsToType
	CheckOwner             *bool
	Primary                *bool
	State                  *api.NICState
	Model                  *string
	VLANID                 *uint16
	NICTag                 *string
	NICTagsProvided        []string
	CNUUID                 *string
	Underlay               *bool
	AllowDHCPSpoofing      *bool
	AllowIPSpoofing        *bool
	AllowMACSpoofing       *bool
	AllowRestrictedTraffic *bool
	AllowUnfilteredPromisc *bool
}

// mergeNICParams builds the merged BaseParams the driver will apply,
// defaulting every field from existing and overriding with whatever
// UpdateParams explicitly set (spec §4.7 step 2).
func mergeNICParams(existing *api.NICRecord, p UpdateParams) BaseParams {
	b := BaseParams{
		OwnerUUID:              existing.OwnerUUID,
		BelongsToUUID:          existing.BelongsToUUID,
		BelongsToType:          existing.BelongsToType,
		CheckOwner:             existing.CheckOwner,
		Model:                  existing.Model,
		NICTag:                 existing.NICTag,
		NICTagsProvided:        existing.NICTagsProvided,
		VLANID:                 existing.VLANID,
		CNUUID:                 existing.CNUUID,
		Underlay:               existing.Underlay,
		Primary:                existing.Primary,
		State:                  existing.State,
		AllowDHCPSpoofing:      existing.AllowDHCPSpoofing,
		AllowIPSpoofing:        existing.AllowIPSpoofing,
		AllowMACSpoofing:       existing.AllowMACSpoofing,
		AllowRestrictedTraffic: existing.AllowRestrictedTraffic,
		AllowUnfilteredPromisc: existing.AllowUnfilteredPromisc,
		MAC:                    existing.MAC,
	}

	if p.OwnerUUID != nil {
		b.OwnerUUID = *p.OwnerUUID
	}
	if p.BelongsToUUID != nil {
		b.BelongsToUUID = *p.BelongsToUUID
	}
	if p.BelongsToType != nil {
		b.BelongsToType = *p.BelongsToType
	}
	if p.CheckOwner != nil {
		b.CheckOwner = *p.CheckOwner
	}
	if p.Primary != nil {
		b.Primary = *p.Primary
	}
	if p.State != nil {
		b.State = *p.State
	}
	if p.Model != nil {
		b.Model = *p.Model
	}
	if p.VLANID != nil {
		b.VLANID = *p.VLANID
	}
	if p.NICTag != nil {
		b.NICTag = *p.NICTag
	}
	if p.NICTagsProvided != nil {
		b.NICTagsProvided = p.NICTagsProvided
	}
	if p.CNUUID != nil {
		b.CNUUID = *p.CNUUID
	}
	if p.Underlay != nil {
		b.Underlay = *p.Underlay
	}
	if p.AllowDHCPSpoofing != nil {
		b.AllowDHCPSpoofing = *p.AllowDHCPSpoofing
	}
	if p.AllowIPSpoofing != nil {
		b.AllowIPSpoofing = *p.AllowIPSpoofing
	}
	if p.AllowMACSpoofing != nil {
		b.AllowMACSpoofing = *p.AllowMACSpoofing
	}
	if p.AllowRestrictedTraffic != nil {
		b.AllowRestrictedTraffic = *p.AllowRestrictedTraffic
	}
	if p.AllowUnfilteredPromisc != nil {
		b.AllowUnfilteredPromisc = *p.AllowUnfilteredPromisc
	}
	return b
}

// addUpdatedNic is nicFn for the update path: it always reuses the
// existing MAC (spec §4.7 step 3), with no mac_duplicate special case —
// a version conflict on the NIC key just means a concurrent writer beat
// us to it, and the outer loop's ordinary retry re-fetches and re-applies.
type addUpdatedNic struct {
	mac uint64
}

func (b *addUpdatedNic) Build(c *Ctx) (*api.NICRecord, error) {
	rec, err := fetchOrNewNIC(c, b.mac)
	if err != nil {
		return nil, err
	}
	applyNICParams(rec, c)
	return rec, nil
}

// updateIPProvisioner reuses a single, already-provisionability-checked
// address across retries, raising the update-specific ip_used_by rather
// than ip_in_use on loss (spec §4.7 step 4).
type updateIPProvisioner struct {
	ip          net.IP
	networkUUID string
}

func (p *updateIPProvisioner) Provision(c *Ctx) error {
	bucket := api.IPBucket(p.networkUUID)
	key := addr.CanonicalIP(p.ip)

	rec, err := fetchOrNewIP(c, p.networkUUID, p.ip)
	if err != nil {
		return err
	}
	if versionConflictOn(c.Err, bucket, key) || !rec.Provisionable(c.Base.OwnerUUID) {
		return ErrIPUsedBy(string(rec.BelongsToType), rec.BelongsToUUID)
	}

	applyIPOwnership(rec, c.Base)
	c.Batch = append(c.Batch, ipBatch(rec))
	c.IPs = append(c.IPs, rec)
	return nil
}

// UpdateNICAndIP is the update reconciler (spec §4.7): it loads the
// existing NIC, merges the requested changes, and delegates to the same
// allocation driver a create uses.
func UpdateNICAndIP(ctx context.Context, c *Ctx, params UpdateParams) (*api.NICRecord, error) {
	val, version, err := c.Store.Get(api.NICBucket, addr.MACKey(params.MAC))
	if store.IsNotFound(err) {
		return nil, ErrNotFound("nic", addr.FormatMAC(params.MAC))
	}
	if err != nil {
		return nil, err
	}
	existing := *(val.(*api.NICRecord))
	existing.Version = version

	c.Base = mergeNICParams(&existing, params)
	c.NICFn = &addUpdatedNic{mac: params.MAC}
	c.RemoveIPs = nil
	c.ProvisionableIPs = nil
	c.Provisioners = nil

	changingIP := params.IP != nil || params.NetworkUUID != nil
	if !changingIP {
		return nicAndIP(ctx, c)
	}

	newNetwork := existing.NetworkUUID
	if params.NetworkUUID != nil {
		newNetwork = *params.NetworkUUID
	}
	newIPStr := existing.IPAddress
	if params.IP != nil {
		newIPStr = *params.IP
	}
	newIP, err := addr.ParseIP(newIPStr)
	if err != nil {
		return nil, ErrInvalidParams("ip")
	}

	candidate, err := fetchOrNewIP(c, newNetwork, newIP)
	if err != nil {
		return nil, err
	}
	if !candidate.Provisionable(c.Base.OwnerUUID) {
		return nil, ErrIPUsedBy(string(candidate.BelongsToType), candidate.BelongsToUUID)
	}

	c.ProvisionableIPs = []string{addr.CanonicalIP(newIP)}
	c.Provisioners = []Provisioner{&updateIPProvisioner{ip: newIP, networkUUID: newNetwork}}

	if existing.HasIP() {
		oldVal, oldVersion, err := c.Store.Get(api.IPBucket(existing.NetworkUUID), existing.IPAddress)
		switch {
		case store.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			oldRec := *(oldVal.(*api.IPRecord))
			oldRec.Version = oldVersion
			if oldRec.BelongsToUUID == c.Base.BelongsToUUID {
				c.RemoveIPs = []*api.IPRecord{&oldRec}
			}
		}
	}

	return nicAndIP(ctx, c)
}
