package discovery

import (
	"net"
	"testing"
)

func TestNewService(t *testing.T) {
	ips := []net.IP{net.IPv4(192, 168, 1, 20)}

	service, err := newService("studio", "studio.local.", 8080, ips)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if service.Instance != "studio" {
		t.Errorf("Expected instance 'studio', got '%s'", service.Instance)
	}
	if service.Service != ServiceType {
		t.Errorf("Expected service %s, got %s", ServiceType, service.Service)
	}
	if service.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", service.Port)
	}
	if len(service.TXT) == 0 || service.TXT[0] != "Whiteboard" {
		t.Errorf("Unexpected TXT records: %v", service.TXT)
	}
}

func TestNewServiceRejectsBadHostName(t *testing.T) {
	// Host names must be fully qualified
	if _, err := newService("studio", "studio.local", 8080, []net.IP{net.IPv4(10, 0, 0, 1)}); err == nil {
		t.Error("Expected error for unqualified host name")
	}
}
