package allocator

import (
	"context"

	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// NetworkLookup resolves the network and pool objects a request refers to.
// It is read-only and outside the allocation driver's retry loop; networks
// are immutable for the duration of an allocation (spec §3).
type NetworkLookup interface {
	Network(uuid string) (*api.LogicalNetwork, error)
	Pool(uuid string) (*api.NetworkPool, error)
}

// FabricResolver collects the set of compute nodes sharing a fabric
// overlay, used by stage 4 of the driver pipeline (spec §4.6) and by the
// delete path (spec §4.8).
type FabricResolver interface {
	ComputeNodesOnVnet(ctx context.Context, vnetID uint32) ([]string, error)
}

// BaseParams carries the validated, caller-supplied fields that seed every
// new IPRecord/NICRecord a request's provisioners and nicFn construct.
type BaseParams struct {
	OwnerUUID     string
	BelongsToUUID string
	BelongsToType api.BelongsToType
	CheckOwner    bool
	Reserved      bool

	Model                  string
	NICTag                 string
	NICTagsProvided        []string
	VLANID                 uint16
	CNUUID                 string
	Underlay               bool
	Primary                bool
	State                  api.NICState
	AllowDHCPSpoofing      bool
	AllowIPSpoofing        bool
	AllowMACSpoofing       bool
	AllowRestrictedTraffic bool
	AllowUnfilteredPromisc bool

	// MAC is the caller-supplied MAC, if any; zero means "generate one".
	MAC uint64
}

// Ctx is the request-scoped struct threaded through every stage of the
// allocation driver. Batch/IPs/VnetCNs/NIC are reset at the top of every
// iteration (spec §4.6 stage 1); Err is kept across iterations so the next
// one can consult the previous one's failure. Ctx itself is never shared
// between concurrent requests.
//
// Grounded on the "ambient per-request context object" design note (§9):
// the source's opts bag becomes this explicit struct.
type Ctx struct {
	Context context.Context

	Store    store.Store
	Config   Config
	Networks NetworkLookup
	Fabric   FabricResolver

	Base BaseParams

	// RemoveIPs/ProvisionableIPs are populated only by the update
	// reconciler (spec §4.7).
	RemoveIPs        []*api.IPRecord
	ProvisionableIPs []string

	Provisioners []Provisioner
	NICFn        NICBuilder

	// Per-iteration scratch.
	Batch   store.Batch
	IPs     []*api.IPRecord
	Err     error
	VnetCNs api.VnetCNs
	NIC     *api.NICRecord
}

// reset clears the per-iteration scratch fields (pipeline stage 1).
func (c *Ctx) reset() {
	c.Batch = nil
	c.IPs = nil
	c.VnetCNs = nil
	c.NIC = nil
}
