package discovery

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_whiteboard._tcp"

// Advertise announces the board server on the local network until the
// returned server is shut down.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := newService(host, "", port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	log.Printf("📡 Advertising %s as %s on port %d", ServiceType, host, port)
	return server, nil
}

// Empty hostName and nil ips fall back to the OS hostname and its addresses.
func newService(instance, hostName string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	info := []string{"Whiteboard", "path=/ws"}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", hostName, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

// Browse reports the address of every board server that answers within the
// lookup window.
func Browse(found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
	}()

	err := mdns.Lookup(ServiceType, entries)
	close(entries)
	<-done
	return err
}
