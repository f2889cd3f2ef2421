package transport

import (
	"fmt"
	"net/netip"
)

// Addr identifies the source of a packet. Implementations are comparable
// value types, so an Addr can be used directly as a map key and compared
// with ==.
type Addr interface {
	fmt.Stringer

	// Station returns the Econet (network, station) pair, or (0, 0) when the
	// encapsulation does not carry one.
	Station() (network, station uint8)

	isAddr()
}

// AUNAddr is the address of a plain AUN station: its IP. The UDP port is
// not part of the identity because replies always go to PortAUN.
type AUNAddr struct {
	IP netip.Addr
}

func (a AUNAddr) String() string { return a.IP.String() }

// Station derives the Econet station number AUN uses for an IPv4 host:
// the last octet, with the third octet as the network.
func (a AUNAddr) Station() (uint8, uint8) {
	if !a.IP.Is4() {
		return 0, 0
	}
	b := a.IP.As4()
	return b[2], b[3]
}

func (AUNAddr) isAddr() {}

// EconetAddr is the address of a station behind the BeebEm encapsulation.
// The IP endpoint is recorded alongside the Econet address so that another
// host cannot take over a station's session by spoofing its number.
type EconetAddr struct {
	Network  uint8
	Num      uint8
	AddrPort netip.AddrPort
}

func (a EconetAddr) String() string {
	return fmt.Sprintf("station %d.%d", a.Network, a.Num)
}

func (a EconetAddr) Station() (uint8, uint8) { return a.Network, a.Num }

func (EconetAddr) isAddr() {}
