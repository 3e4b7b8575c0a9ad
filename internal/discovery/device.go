package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Device represents a Freebox found on the network
type Device struct {
	// UID is the box identifier advertised in the "uid" TXT record
	UID string

	// Hostname is the mDNS hostname (e.g., "Freebox-Server.local.")
	Hostname string

	// IP is the address the advertisement came from (IPv4 preferred)
	IP string

	// Port is the plain HTTP port of the service (typically 80)
	Port int

	// APIDomain is the domain covered by the box certificate (e.g., "abcd1234.fbxos.fr")
	APIDomain string

	// HTTPSPort is the HTTPS port of the API
	HTTPSPort int

	// HTTPSAvailable reports whether the API is served over HTTPS
	HTTPSAvailable bool

	// APIBaseURL is the API path prefix (e.g., "/api/")
	APIBaseURL string

	// APIVersion is the highest API version supported (e.g., "8.0")
	APIVersion string

	// DeviceType is the hardware identifier (e.g., "FreeboxServer7,1")
	DeviceType string

	// BoxModel and BoxModelName describe the model
	BoxModel     string
	BoxModelName string

	// Metadata contains every TXT record, parsed or not
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.BoxModelName
	if name == "" {
		name = "Freebox"
	}
	return fmt.Sprintf("%s %s (%s) at %s", name, d.UID, d.Hostname, d.IP)
}

// BaseURL returns the HTTPS API base URL for the device.
// The IP is used because the certificate name is not verified on the LAN.
func (d *Device) BaseURL() string {
	port := d.HTTPSPort
	if port == 0 {
		port = 443
	}
	base := d.APIBaseURL
	if base == "" {
		base = "/api/"
	}
	host := d.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("https://%s:%d%s", host, port, base)
}

// MajorAPIVersion returns the path prefix matching APIVersion (e.g., "v8")
func (d *Device) MajorAPIVersion() string {
	if d.APIVersion == "" {
		return ""
	}
	major, _, _ := strings.Cut(d.APIVersion, ".")
	return "v" + major
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
