package allocator

import (
	"context"
	"math/rand"
	"net"

	"github.com/jasonbking/sdc-napi/api"
)

// CreateParams is the validated shape a caller hands the allocation core
// to provision a new (NIC, IP) pair. Exactly one of IP+NetworkUUID,
// NetworkUUID alone, or NetworkPool selects the address strategy (spec
// §4.4); MAC, if non-zero, selects macSupplied over randomMAC (spec §4.5).
type CreateParams struct {
	Base BaseParams

	IP          net.IP
	NetworkUUID string
	NetworkPool *api.NetworkPool
}

// validateCreateParams checks the field combinations the driver itself
// cannot recover from once provisioners start running (missing
// ownership, an ambiguous or absent address strategy). Everything else —
// whether an address is actually free, whether a MAC collides — is left
// to the provisioners and nicFn, since only they can tell by trying.
func validateCreateParams(p CreateParams) []string {
	var fields []string
	if p.Base.BelongsToUUID == "" {
		fields = append(fields, "belongs_to_uuid")
	}
	if p.Base.BelongsToType == "" {
		fields = append(fields, "belongs_to_type")
	}
	if p.Base.OwnerUUID == "" {
		fields = append(fields, "owner_uuid")
	}
	if p.Base.NICTag == "" {
		fields = append(fields, "nic_tag")
	}

	selectors := 0
	if p.IP != nil {
		selectors++
	}
	if p.NetworkPool != nil {
		selectors++
	}
	if p.NetworkUUID != "" && p.NetworkPool == nil {
		// network_uuid alone (no IP) is its own selector, unless IP is also
		// set, in which case it qualifies IP rather than standing alone.
		if p.IP == nil {
			selectors++
		}
	}
	if p.IP != nil && p.NetworkUUID == "" {
		fields = append(fields, "network_uuid")
	}
	switch selectors {
	case 0:
		fields = append(fields, "network_uuid", "network_pool")
	case 1:
		// fine
	default:
		fields = append(fields, "network_pool")
	}

	return fields
}

// CreateNICAndIP validates params, builds the Provisioner/NICBuilder pair
// the request shape implies, and runs the allocation driver (spec
// §4.4-§4.6). rng seeds the randomized address/MAC scans.
func CreateNICAndIP(ctx context.Context, c *Ctx, params CreateParams, rng *rand.Rand) (*api.NICRecord, error) {
	if fields := validateCreateParams(params); len(fields) > 0 {
		return nil, ErrInvalidParams(fields...)
	}

	c.Base = params.Base
	c.RemoveIPs = nil
	c.ProvisionableIPs = nil

	switch {
	case params.IP != nil:
		c.Provisioners = []Provisioner{NewIPProvisioner(params.IP, params.NetworkUUID, "ip")}
	case params.NetworkPool != nil:
		c.Provisioners = []Provisioner{NewNetworkPoolProvisioner(params.NetworkPool, "network_pool", rng)}
	default:
		c.Provisioners = []Provisioner{NewNetworkProvisioner(params.NetworkUUID, rng)}
	}

	if params.Base.MAC != 0 {
		c.NICFn = NewMACSuppliedBuilder(params.Base.MAC)
	} else {
		c.NICFn = NewRandomMACBuilder(c.Config.MacOUI, c.Config.macRetries(), rng, 0)
	}

	return nicAndIP(ctx, c)
}
