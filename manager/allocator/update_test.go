package allocator

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonbking/sdc-napi/addr"
	"github.com/jasonbking/sdc-napi/api"
	"github.com/jasonbking/sdc-napi/manager/state/store"
)

func strPtr(s string) *string { return &s }

// scenario 5: the NIC's old IP is reassigned to a different owner between
// provision and update; the update to a new address must still succeed
// and must not free (or otherwise touch) the reassigned address.
func TestUpdateNICAndIP_OwnershipChangedUnderneath(t *testing.T) {
	net1 := testNetwork("net-1")
	net1.EndIP = net.ParseIP("10.0.0.250")
	lookup := &fakeNetworkLookup{networks: map[string]*api.LogicalNetwork{"net-1": net1}}
	sharedStore := newTestStore()

	base := testBaseParams()
	c := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	nic, err := CreateNICAndIP(context.Background(), c, CreateParams{
		Base: base, IP: net.ParseIP("10.0.0.10"), NetworkUUID: "net-1",
	}, seededRNG())
	require.NoError(t, err)
	oldIP := nic.IPAddress
	require.Equal(t, "10.0.0.10", oldIP)

	// Simulate a concurrent reassignment of the old IP to a different
	// owner: fetch its current version and overwrite ownership directly.
	val, version, err := sharedStore.Get(api.IPBucket("net-1"), oldIP)
	require.NoError(t, err)
	reassigned := *(val.(*api.IPRecord))
	reassigned.BelongsToUUID = "someone-else"
	reassigned.OwnerUUID = "someone-else-owner"
	reassigned.Version = version
	require.NoError(t, sharedStore.Commit(store.Batch{{
		Op: store.OpPut, Bucket: api.IPBucket("net-1"), Key: oldIP,
		Value: &reassigned, ExpectVersion: &version,
	}}))

	uc := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	updated, err := UpdateNICAndIP(context.Background(), uc, UpdateParams{
		MAC: nic.MAC,
		IP:  strPtr("10.0.0.11"),
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.11", updated.IPAddress)
	assert.Equal(t, nic.MAC, updated.MAC)

	// The reassigned old IP must be untouched: still owned by the other
	// party, not freed.
	stillVal, _, err := sharedStore.Get(api.IPBucket("net-1"), oldIP)
	require.NoError(t, err)
	stillRec := stillVal.(*api.IPRecord)
	assert.Equal(t, "someone-else", stillRec.BelongsToUUID)
	assert.False(t, stillRec.Free)
}

// Update frees only an old IP still owned by the updating NIC.
func TestUpdateNICAndIP_FreesOwnOldIP(t *testing.T) {
	net1 := testNetwork("net-1")
	net1.EndIP = net.ParseIP("10.0.0.250")
	lookup := &fakeNetworkLookup{networks: map[string]*api.LogicalNetwork{"net-1": net1}}
	sharedStore := newTestStore()

	base := testBaseParams()
	c := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	nic, err := CreateNICAndIP(context.Background(), c, CreateParams{
		Base: base, IP: net.ParseIP("10.0.0.10"), NetworkUUID: "net-1",
	}, seededRNG())
	require.NoError(t, err)
	oldIP := nic.IPAddress

	uc := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	_, err = UpdateNICAndIP(context.Background(), uc, UpdateParams{
		MAC: nic.MAC,
		IP:  strPtr("10.0.0.11"),
	})
	require.NoError(t, err)

	val, _, err := sharedStore.Get(api.IPBucket("net-1"), oldIP)
	require.NoError(t, err)
	rec := val.(*api.IPRecord)
	assert.True(t, rec.Free)
	assert.Empty(t, rec.BelongsToUUID)
}

// Update preserves the NIC's MAC across a successful update.
func TestUpdateNICAndIP_PreservesMAC(t *testing.T) {
	net1 := testNetwork("net-1")
	net1.EndIP = net.ParseIP("10.0.0.250")
	lookup := &fakeNetworkLookup{networks: map[string]*api.LogicalNetwork{"net-1": net1}}
	sharedStore := newTestStore()

	base := testBaseParams()
	c := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	nic, err := CreateNICAndIP(context.Background(), c, CreateParams{Base: base, NetworkUUID: "net-1"}, seededRNG())
	require.NoError(t, err)

	newModel := "virtio"
	uc := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	updated, err := UpdateNICAndIP(context.Background(), uc, UpdateParams{MAC: nic.MAC, Model: &newModel})
	require.NoError(t, err)

	assert.Equal(t, nic.MAC, updated.MAC)
	assert.Equal(t, "virtio", updated.Model)
}

func TestUpdateNICAndIP_NotFound(t *testing.T) {
	lookup := &fakeNetworkLookup{networks: map[string]*api.LogicalNetwork{}}
	c := testCtx(lookup, nil)

	mac, err := addr.ParseMAC("90:b8:d0:00:00:99")
	require.NoError(t, err)

	_, err = UpdateNICAndIP(context.Background(), c, UpdateParams{MAC: mac})
	require.Error(t, err)
	assert.True(t, IsErrNotFound(err))
}

func TestUpdateNICAndIP_NewIPNotProvisionable(t *testing.T) {
	net1 := testNetwork("net-1")
	net1.EndIP = net.ParseIP("10.0.0.250")
	lookup := &fakeNetworkLookup{networks: map[string]*api.LogicalNetwork{"net-1": net1}}
	sharedStore := newTestStore()

	base := testBaseParams()
	c := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	nic, err := CreateNICAndIP(context.Background(), c, CreateParams{
		Base: base, IP: net.ParseIP("10.0.0.10"), NetworkUUID: "net-1",
	}, seededRNG())
	require.NoError(t, err)

	require.NoError(t, sharedStore.Commit(store.Batch{{
		Op: store.OpPut, Bucket: api.IPBucket("net-1"), Key: "10.0.0.20",
		Value: &api.IPRecord{
			Address: net.ParseIP("10.0.0.20"), NetworkUUID: "net-1",
			BelongsToUUID: "other-owner", BelongsToType: api.BelongsToZone,
		},
	}}))

	uc := &Ctx{Context: context.Background(), Store: sharedStore, Config: DefaultConfig(testOUI), Networks: lookup}
	_, err = UpdateNICAndIP(context.Background(), uc, UpdateParams{MAC: nic.MAC, IP: strPtr("10.0.0.20")})
	require.Error(t, err)
	assert.True(t, IsErrIPUsedBy(err))
}
