package model

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetworkHostAddressRejectedOutsideSubnet(t *testing.T) {
	n := NewNetwork()
	require.NoError(t, n.SetNetmask(net.CIDRMask(24, 32)))
	require.NoError(t, n.SetRouter(net.ParseIP("192.168.1.1")))

	err := n.SetHostAddress(net.ParseIP("10.0.0.5"))
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, n.SetHostAddress(net.ParseIP("192.168.1.42")))
	require.True(t, n.HostAddress().Equal(net.ParseIP("192.168.1.42")))
}

func TestNetworkSetMACAlreadySet(t *testing.T) {
	n := NewNetwork()
	mac := EUI48{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	require.NoError(t, n.SetMAC(mac))
	require.ErrorIs(t, n.SetMAC(mac), ErrValueAlreadySet)
	require.Equal(t, "00:11:22:33:44:55", mac.String())
}
