// Package responder implements a minimal WS-Discovery responder that
// answers Probe messages on behalf of simulated ONVIF devices.
//
// It is used to exercise discovery sessions against real sockets and by
// the "onvif-probe simulate" command to stand in for cameras on a network.
//
// # Usage Example
//
//	r := responder.New(responder.Config{
//	    Addr: "127.0.0.1:0",
//	    Devices: []protocol.ProbeMatch{{
//	        EndpointAddress: "urn:uuid:cam-1",
//	        Types:           []string{protocol.TypeNetworkVideoTransmitter},
//	        XAddrs:          []string{"http://127.0.0.1:8080/onvif/device_service"},
//	    }},
//	})
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// # Scripted Replies
//
// Config.Replies maps a probe message id to raw payloads sent verbatim
// instead of the device answers, which makes it possible to reproduce
// misbehaving responders:
//
//	Replies: map[string][]string{"e7707": {"lollipop"}}
//
// # Multicast
//
// When Addr is a multicast group (for example protocol.MulticastAddress)
// the responder binds the group port on all addresses and joins the group
// on the configured interface, or on every multicast-capable interface.
package responder
