package allocator

import (
	"context"
	"math/rand"
	"net"

	"github.com/google/uuid"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

// testUUID synthesizes a fresh owner/belongs_to identifier the same way a
// real caller would mint one before a provision request, rather than
// hand-writing ad hoc strings that could accidentally collide across
// test cases.
func testUUID() string {
	return uuid.New().String()
}

var testOUI = addr.OUI(0x90b8d0)

func newTestStore() store.Store {
	return store.NewMemoryStore()
}

// fakeNetworkLookup is the NetworkLookup used by every test in this
// package: a plain map, since the driver never mutates a network.
type fakeNetworkLookup struct {
	networks map[string]*api.LogicalNetwork
	pools    map[string]*api.NetworkPool
}

func (f *fakeNetworkLookup) Network(uuid string) (*api.LogicalNetwork, error) {
	n, ok := f.networks[uuid]
	if !ok {
		return nil, ErrNotFound("network", uuid)
	}
	return n, nil
}

func (f *fakeNetworkLookup) Pool(uuid string) (*api.NetworkPool, error) {
	p, ok := f.pools[uuid]
	if !ok {
		return nil, ErrNotFound("network_pool", uuid)
	}
	return p, nil
}

// fakeFabricResolver records how many times it was asked, so fabric tests
// can assert the one-lookup-per-distinct-network rule (spec §5).
type fakeFabricResolver struct {
	byVnet map[uint32][]string
	calls  int
}

func (f *fakeFabricResolver) ComputeNodesOnVnet(_ context.Context, vnetID uint32) ([]string, error) {
	f.calls++
	return f.byVnet[vnetID], nil
}

func testNetwork(uuid string) *api.LogicalNetwork {
	return &api.LogicalNetwork{
		UUID:    uuid,
		Family:  api.IPv4,
		StartIP: net.ParseIP("10.0.0.1"),
		EndIP:   net.ParseIP("10.0.0.6"),
	}
}

func seededRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func testCtx(lookup *fakeNetworkLookup, fabric *fakeFabricResolver) *Ctx {
	return &Ctx{
		Context:  context.Background(),
		Store:    newTestStore(),
		Config:   DefaultConfig(testOUI),
		Networks: lookup,
		Fabric:   fabric,
	}
}
