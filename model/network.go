package model

import (
	"fmt"
	"net"
)

// EUI48 is a six-byte hardware (MAC) address.
type EUI48 [6]byte

func (m EUI48) String() string {
	return net.HardwareAddr(m[:]).String()
}

// Network holds the device's network configuration.
type Network struct {
	dhcpv4Enabled bool
	mac           EUI48
	hostAddress   net.IP
	netmask       net.IPMask
	router        net.IP
	sddpEnabled   bool
}

// NewNetwork returns a default-constructed network configuration: DHCPv4
// enabled, SDDP enabled, all addresses unset.
func NewNetwork() Network {
	return Network{dhcpv4Enabled: true, sddpEnabled: true}
}

// DHCPv4Enabled reports whether DHCPv4 is enabled.
func (n Network) DHCPv4Enabled() bool { return n.dhcpv4Enabled }

// MAC returns the device's hardware address.
func (n Network) MAC() EUI48 { return n.mac }

// HostAddress returns the configured static host address, or nil if unset.
func (n Network) HostAddress() net.IP { return n.hostAddress }

// Netmask returns the configured netmask, or nil if unset.
func (n Network) Netmask() net.IPMask { return n.netmask }

// Router returns the configured default router, or nil if unset.
func (n Network) Router() net.IP { return n.router }

// SDDPEnabled reports whether Control4-SDDP discovery is enabled.
func (n Network) SDDPEnabled() bool { return n.sddpEnabled }

// SetDHCPv4Enabled toggles DHCPv4.
func (n *Network) SetDHCPv4Enabled(enabled bool) error {
	if n.dhcpv4Enabled == enabled {
		return ErrValueAlreadySet
	}
	n.dhcpv4Enabled = enabled
	return nil
}

// SetMAC sets the hardware address.
func (n *Network) SetMAC(mac EUI48) error {
	if n.mac == mac {
		return ErrValueAlreadySet
	}
	n.mac = mac
	return nil
}

// SetNetmask sets the netmask.
func (n *Network) SetNetmask(mask net.IPMask) error {
	if mask == nil {
		return fmt.Errorf("nil netmask: %w", ErrInvalidArgument)
	}
	if ipMaskEqual(n.netmask, mask) {
		return ErrValueAlreadySet
	}
	n.netmask = mask
	return nil
}

// SetRouter sets the default router address.
func (n *Network) SetRouter(router net.IP) error {
	if router == nil {
		return fmt.Errorf("nil router address: %w", ErrInvalidArgument)
	}
	if n.router != nil && n.router.Equal(router) {
		return ErrValueAlreadySet
	}
	n.router = router
	return nil
}

// SetSDDPEnabled toggles Control4-SDDP discovery.
func (n *Network) SetSDDPEnabled(enabled bool) error {
	if n.sddpEnabled == enabled {
		return ErrValueAlreadySet
	}
	n.sddpEnabled = enabled
	return nil
}

// SetHostAddress sets the static host address. When both a netmask and a
// router are configured, the candidate address is rejected with
// ErrInvalidArgument unless it lies in the router's subnet under that
// netmask; with either one unset, any non-nil address is accepted — grounded
// on the upstream NetworkControllerBasis cross-field validation: a host
// address outside the configured subnet is refused rather than silently
// accepted.
func (n *Network) SetHostAddress(addr net.IP) error {
	if addr == nil {
		return fmt.Errorf("nil host address: %w", ErrInvalidArgument)
	}
	if n.netmask != nil && n.router != nil {
		hostNet := addr.Mask(n.netmask)
		routerNet := n.router.Mask(n.netmask)
		if hostNet == nil || routerNet == nil || !ipEqualBytes(hostNet, routerNet) {
			return fmt.Errorf("host address %s outside router %s's subnet %s: %w", addr, n.router, n.netmask, ErrInvalidArgument)
		}
	}
	if n.hostAddress != nil && n.hostAddress.Equal(addr) {
		return ErrValueAlreadySet
	}
	n.hostAddress = addr
	return nil
}

func ipMaskEqual(a, b net.IPMask) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ipEqualBytes(a, b net.IP) bool {
	return a.Equal(b)
}
