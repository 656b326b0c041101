package api

// VnetMemberBucket is the store bucket holding which compute nodes
// belong to which fabric overlay, keyed by ComputeNodeUUID.
const VnetMemberBucket = "napi_vnet_members"

// VnetMember records that a compute node participates in a fabric
// overlay (vnet_id). The allocator's fabric-member resolver lists this
// bucket filtered by VnetID (spec §4.6 stage 4).
type VnetMember struct {
	ComputeNodeUUID string
	VnetID          uint32

	Version Version
}
