package allocator

import (
	"context"

	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// StoreFabricResolver implements FabricResolver directly against the
// core's own Store: compute-node/vnet membership lives in a bucket
// alongside the NIC and IP buckets rather than behind a separate
// network-topology service, keeping the fabric lookup inside the same
// conditional-commit world as everything else the driver touches.
//
// This is the "periodic fabric cache" the source leaves as an
// implementer's choice (spec §5); this core implements the read-through
// case and leaves caching to whatever embeds it.
type StoreFabricResolver struct {
	Store store.Store
}

// ComputeNodesOnVnet lists every compute node currently recorded against
// vnetID. The listing is a single snapshot read (spec §5: "snapshot-
// consistent per request").
func (r *StoreFabricResolver) ComputeNodesOnVnet(ctx context.Context, vnetID uint32) ([]string, error) {
	var cns []string
	filter := func(value interface{}) bool {
		member, ok := value.(*api.VnetMember)
		return ok && member.VnetID == vnetID
	}
	err := r.Store.List(api.VnetMemberBucket, filter, func(value interface{}) error {
		cns = append(cns, value.(*api.VnetMember).ComputeNodeUUID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cns, nil
}
