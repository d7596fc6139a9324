// Package discovery provides WS-Discovery based discovery of ONVIF cameras.
//
// A discovery session sends one multicast Probe for network video
// transmitters and collects ProbeMatch replies until a timeout expires.
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Opens an ephemeral UDP socket and sends the Probe to 239.255.255.250:3702
//  2. Decodes every reply datagram as a SOAP ProbeMatches envelope
//  3. Drops repeated replies from the same responder (keyed by first XAddr)
//  4. Resolves each new match into a connection Handle (optional)
//  5. Emits a device event per new device, or an error event per bad reply
//  6. Reports all devices to the callback when the timeout expires
//
// # Usage Example
//
//	discovery.OnDevice(func(d *discovery.Device) {
//	    fmt.Println("found", d)
//	})
//
//	discovery.Probe(ctx, func(devices []*discovery.Device, err error) {
//	    var respErr *discovery.ResponseErrors
//	    if errors.As(err, &respErr) {
//	        fmt.Printf("%d bad replies\n", len(respErr.Errors))
//	    }
//	    for _, d := range devices {
//	        fmt.Println(d.Handle.ServiceURL())
//	    }
//	}, discovery.WithTimeout(3*time.Second))
//
// # Results
//
// With resolution enabled (the default) every device is KindHandle and
// carries hostname, port, path and URN. WithResolve(false) yields KindInfo
// devices holding only the parsed probe match.
//
// Bad replies never stop a session. They are reported as error events and
// collected into a *ResponseErrors returned together with the devices.
// Socket failures close the session immediately with a transport error.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Cameras must be on the same local network segment
// - Firewall must allow inbound unicast UDP replies to the probe socket
//
// # Thread Safety
//
// Sessions are independent and may overlap. Events from all sessions that
// use the same Bus (DefaultBus unless WithBus is given) arrive interleaved.
package discovery
