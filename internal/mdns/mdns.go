package mdns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/devwatch/internal/device"
	"github.com/muurk/devwatch/internal/logging"
)

const (
	// DefaultServiceType is the DNS-SD service type browsed by default
	DefaultServiceType = "_discover._tcp"

	// DefaultDomain is the mDNS domain
	DefaultDomain = "local."
)

var errBrowseStopped = errors.New("mDNS browse stopped before cancellation")

// Browser is the part of zeroconf.Resolver the listener uses
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Options configures a Listener. Zero values select the defaults.
type Options struct {
	ServiceType string
	Domain      string

	// NewBrowser creates the mDNS browser (default zeroconf.NewResolver)
	NewBrowser func() (Browser, error)

	// Now supplies observation timestamps (default time.Now)
	Now func() time.Time
}

// Listener browses for a service type with multicast DNS directly, without
// a local daemon, and reports each resolved entry to a device.Listener.
type Listener struct {
	listener    device.Listener
	serviceType string
	domain      string
	newBrowser  func() (Browser, error)
	now         func() time.Time
}

// NewListener creates an mDNS Listener that reports to l
func NewListener(l device.Listener, opts Options) *Listener {
	if opts.ServiceType == "" {
		opts.ServiceType = DefaultServiceType
	}
	if opts.Domain == "" {
		opts.Domain = DefaultDomain
	}
	if opts.NewBrowser == nil {
		opts.NewBrowser = func() (Browser, error) {
			return zeroconf.NewResolver(nil)
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Listener{
		listener:    l,
		serviceType: opts.ServiceType,
		domain:      opts.Domain,
		newBrowser:  opts.NewBrowser,
		now:         opts.Now,
	}
}

// Listen browses until ctx is cancelled, which returns nil. Resolver and
// browse failures, and a browse that ends by itself, are returned; entries
// without an address are logged and skipped.
func (l *Listener) Listen(ctx context.Context) error {
	browser, err := l.newBrowser()
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := browser.Browse(ctx, l.serviceType, l.domain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			l.handleEntry(entry)
		}
	}()
	logging.Info("Browsing for services over mDNS",
		zap.String("type", l.serviceType),
		zap.String("domain", l.domain),
	)

	select {
	case <-ctx.Done():
		// zeroconf closes entries once its loop sees the cancellation
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		// zeroconf gave up on its own, e.g. its periodic query failed
		return errBrowseStopped
	}
}

func (l *Listener) handleEntry(entry *zeroconf.ServiceEntry) {
	fields := logging.ServiceFields{
		Interface: -1,
		Protocol:  -1,
		Name:      entry.Instance,
		Type:      entry.Service,
		Domain:    entry.Domain,
	}
	logging.LogAnnouncement("added", fields)

	d, ok := l.parseServiceEntry(entry)
	if !ok {
		logging.Warn("Skipping mDNS entry without address",
			zap.String("name", entry.Instance),
			zap.String("host", entry.HostName),
		)
		return
	}
	l.listener.OnDeviceDiscovered(d)
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns false if the entry carries no address.
func (l *Listener) parseServiceEntry(entry *zeroconf.ServiceEntry) (device.Device, bool) {
	// Prefer IPv4 for dual-stack hosts
	var address string
	protocol := int32(0)
	if len(entry.AddrIPv4) > 0 {
		address = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		address = entry.AddrIPv6[0].String()
		protocol = 1
	}
	if address == "" {
		return device.Device{}, false
	}

	logging.LogResolution(logging.ServiceFields{
		Interface: -1,
		Protocol:  -1,
		Name:      entry.Instance,
		Type:      entry.Service,
		Domain:    entry.Domain,
	}, entry.HostName, protocol, address, uint16(entry.Port), len(entry.Text))

	txt := device.ParseTXTStrings(entry.Text)
	logging.LogTXT(entry.Instance, txt.Skipped)
	return device.New(txt, l.now()), true
}
