// Package mdns provides daemon-less device discovery over multicast DNS.
//
// It is the alternative to package avahi for hosts without avahi-daemon:
// the same device.Listener receives the same device.Device records, built
// from the same TXT parsing rules, but browsing and resolution happen in
// process with github.com/grandcat/zeroconf.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// Removal announcements are not reported by the resolver, so this transport
// only ever produces additions.
package mdns
