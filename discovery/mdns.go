// Package discovery advertises the server on the local network over mDNS so
// clients on the same LAN can find it without a configured address.
package discovery

import (
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

type Advertiser struct {
	server  *mdns.Server
	service *mdns.MDNSService
}

// Advertise announces serviceType on port under this machine's hostname.
func Advertise(serviceType string, port int) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := newService(host, serviceType, "", port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return &Advertiser{server: server, service: service}, nil
}

// newService builds the zone. Empty hostName and nil ips are filled in from
// the OS.
func newService(instance, serviceType, hostName string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	txt := []string{"LiveBoard", "path=/ws"}
	service, err := mdns.NewMDNSService(instance, serviceType, "", hostName, port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

func (a *Advertiser) Instance() string { return a.service.Instance }

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}
