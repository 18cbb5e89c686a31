package stream

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

type Address struct {
	IP   string
	Port uint16
}

func (a Address) String() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(int(a.Port)))
}

func (a Address) IsZero() bool {
	return a.IP == "" && a.Port == 0
}

func ParseAddress(s string) (Address, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, errors.Wrapf(err, "gsession: parse address %q", s)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Address{}, errors.Wrapf(err, "gsession: parse port %q", port)
	}
	return Address{IP: host, Port: uint16(p)}, nil
}

func AddressOf(addr net.Addr) Address {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return Address{IP: tcp.IP.String(), Port: uint16(tcp.Port)}
	}
	a, _ := ParseAddress(addr.String())
	return a
}
