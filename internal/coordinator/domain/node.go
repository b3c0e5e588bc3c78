package domain

import (
	"net"
	"strconv"
)

// Endpoint is a peer's static dialing address from the cluster map.
type Endpoint struct {
	Host string
	Port int
	TLS  bool
}

// Addr returns the host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
