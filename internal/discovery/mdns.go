package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/fbx/internal/logging"
)

const (
	// ServiceType is the mDNS service type advertised by the Freebox API
	ServiceType = "_fbx-api._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the plain HTTP port of the service
	DefaultPort = 80
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all boxes on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers boxes with a custom context.
// Devices are returned once the timeout expires or ctx is cancelled.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	seen := make(map[string]bool)
	devices := make([]*Device, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if !seen[device.UID] {
				seen[device.UID] = true
				devices = append(devices, device)
				logging.Debug("Freebox discovered", zap.String("uid", device.UID), zap.String("ip", device.IP))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	result := make([]*Device, len(devices))
	copy(result, devices)
	return result, nil
}

// WaitForDevice waits for a specific box by UID
func (s *Scanner) WaitForDevice(uid string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), uid)
}

// WaitForDeviceWithContext waits for a specific box with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, uid string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device != nil && device.UID == uid {
				select {
				case deviceChan <- device:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("freebox %s not found within timeout", uid)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry does not describe a Freebox API.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if metadata["api_base_url"] == "" {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	uid := metadata["uid"]
	if uid == "" {
		uid = entry.HostName
	}

	httpsPort, _ := strconv.Atoi(metadata["https_port"])

	return &Device{
		UID:            uid,
		Hostname:       entry.HostName,
		IP:             ip,
		Port:           port,
		APIDomain:      metadata["api_domain"],
		HTTPSPort:      httpsPort,
		HTTPSAvailable: metadata["https_available"] == "1",
		APIBaseURL:     metadata["api_base_url"],
		APIVersion:     metadata["api_version"],
		DeviceType:     metadata["device_type"],
		BoxModel:       metadata["box_model"],
		BoxModelName:   metadata["box_model_name"],
		Metadata:       metadata,
		DiscoveredAt:   time.Now(),
	}
}

// parseTXT splits "key=value" TXT records. Keys without value map to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

// ScanForDevices is a convenience function to scan for boxes with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan() ([]*Device, error) {
	return ScanForDevices(3 * time.Second)
}

// FindDevice searches for a specific box by UID with default timeout
func FindDevice(uid string) (*Device, error) {
	return NewScanner().WaitForDevice(uid)
}
