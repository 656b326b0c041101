package api

import (
	"net"

	"github.com/jasonbking/sdc-napi/addr"
)

// Serialize builds the caller-facing representation of a NIC, folding in
// the network-derived fields (netmask/prefix, gateway, resolvers) that
// aren't stored on the NICRecord itself.
func Serialize(n *NICRecord, network *LogicalNetwork) *SerializedNIC {
	out := &SerializedNIC{
		MAC:                    addr.FormatMAC(n.MAC),
		Primary:                n.Primary,
		OwnerUUID:              n.OwnerUUID,
		BelongsToUUID:          n.BelongsToUUID,
		BelongsToType:          n.BelongsToType,
		IP:                     n.IPAddress,
		VLANID:                 n.VLANID,
		NICTag:                 n.NICTag,
		AllowDHCPSpoofing:      n.AllowDHCPSpoofing,
		AllowIPSpoofing:        n.AllowIPSpoofing,
		AllowMACSpoofing:       n.AllowMACSpoofing,
		AllowRestrictedTraffic: n.AllowRestrictedTraffic,
		AllowUnfilteredPromisc: n.AllowUnfilteredPromisc,
		State:                  n.State,
	}

	if network == nil {
		return out
	}

	if network.Gateway != nil {
		out.Gateway = network.Gateway.String()
	}
	for _, r := range network.Resolvers {
		out.Resolvers = append(out.Resolvers, r.String())
	}

	switch network.Family {
	case IPv4:
		if network.Subnet != nil {
			out.Netmask = net.IP(network.Subnet.Mask).String()
		}
	case IPv6:
		if network.Subnet != nil {
			ones, _ := network.Subnet.Mask.Size()
			out.PrefixLen = ones
		}
	}

	return out
}
