package api

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalNetworkContains(t *testing.T) {
	n := &LogicalNetwork{
		StartIP: net.ParseIP("10.0.0.1"),
		EndIP:   net.ParseIP("10.0.0.254"),
	}
	assert.True(t, n.Contains(net.ParseIP("10.0.0.1")))
	assert.True(t, n.Contains(net.ParseIP("10.0.0.254")))
	assert.True(t, n.Contains(net.ParseIP("10.0.0.100")))
	assert.False(t, n.Contains(net.ParseIP("10.0.0.0")))
	assert.False(t, n.Contains(net.ParseIP("10.0.1.0")))
}

func TestIPBucketIsStablePerNetwork(t *testing.T) {
	n := &LogicalNetwork{UUID: "net-1"}
	assert.Equal(t, IPBucket("net-1"), n.Bucket())
	assert.NotEqual(t, IPBucket("net-1"), IPBucket("net-2"))
}
