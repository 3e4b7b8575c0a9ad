// Package discovery finds Freebox routers on the local network with mDNS.
//
// The Freebox Server advertises its API as a "_fbx-api._tcp" service. The
// TXT records of the advertisement carry what a client needs to connect:
//
//	api_domain=abcd1234.fbxos.fr
//	https_port=34567
//	https_available=1
//	api_base_url=/api/
//	api_version=8.0
//	uid=0123456789abcdef0123456789abcdef
//	box_model=fbxgw7-r1/full
//	box_model_name=Freebox v7 (r1)
//	device_type=FreeboxServer7,1
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Printf("%s -> %s\n", d.UID, d.BaseURL())
//	}
//
// # Network Requirements
//
// Multicast must be allowed on the interface and UDP port 5353 must not be
// filtered. Boxes in bridge mode still advertise on the LAN side.
package discovery
