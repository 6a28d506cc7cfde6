package mdns

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/devwatch/internal/device"
)

var testNow = time.Unix(1700000000, 0)

type recordingListener struct {
	mu      sync.Mutex
	devices []device.Device
}

func (r *recordingListener) OnDeviceDiscovered(d device.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, d)
}

// fakeBrowser replays entries and closes the channel on cancellation,
// as zeroconf does.
type fakeBrowser struct {
	entries []*zeroconf.ServiceEntry
	err     error

	// stopEarly closes entries after replaying them, without cancellation
	stopEarly bool

	service string
	domain  string
}

func (b *fakeBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	b.service, b.domain = service, domain
	if b.err != nil {
		return b.err
	}
	go func() {
		defer close(entries)
		for _, e := range b.entries {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
		if b.stopEarly {
			return
		}
		<-ctx.Done()
	}()
	return nil
}

func newEntry(instance string, v4, v6 []net.IP, text ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, DefaultServiceType, DefaultDomain)
	e.HostName = instance + ".local."
	e.Port = 8080
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = text
	return e
}

func TestListener_parseServiceEntry(t *testing.T) {
	l := NewListener(&recordingListener{}, Options{Now: func() time.Time { return testNow }})

	tests := []struct {
		name   string
		entry  *zeroconf.ServiceEntry
		wantOK bool
		want   device.Device
	}{
		{
			name:   "IPv4 entry with TXT",
			entry:  newEntry("sensor-01", []net.IP{net.ParseIP("192.168.4.16")}, nil, "sn=01", "hw=esp32", "uptime=60"),
			wantOK: true,
			want: device.Device{
				SN:            "01",
				HW:            "esp32",
				UptimeSeconds: 60,
				UnixEpoch:     uint64(testNow.Unix()),
				Custom:        "sn=01 hw=esp32 uptime=60",
			},
		},
		{
			name:   "IPv6 only",
			entry:  newEntry("sensor-02", nil, []net.IP{net.ParseIP("fe80::1")}, "sn=02"),
			wantOK: true,
			want: device.Device{
				SN:        "02",
				UnixEpoch: uint64(testNow.Unix()),
				Custom:    "sn=02",
			},
		},
		{
			name:   "no address",
			entry:  newEntry("ghost", nil, nil, "sn=03"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.parseServiceEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("parseServiceEntry() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseServiceEntry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListener_Listen(t *testing.T) {
	rec := &recordingListener{}
	browser := &fakeBrowser{
		entries: []*zeroconf.ServiceEntry{
			newEntry("a", []net.IP{net.ParseIP("10.0.0.1")}, nil, "sn=a"),
			newEntry("nowhere", nil, nil, "sn=x"),
			newEntry("b", []net.IP{net.ParseIP("10.0.0.2")}, nil, "sn=b"),
		},
	}
	l := NewListener(rec, Options{
		ServiceType: "_sensor._tcp",
		NewBrowser:  func() (Browser, error) { return browser, nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.devices)
		rec.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d devices, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}

	if browser.service != "_sensor._tcp" || browser.domain != DefaultDomain {
		t.Errorf("browsed %q in %q", browser.service, browser.domain)
	}
	if rec.devices[0].SN != "a" || rec.devices[1].SN != "b" {
		t.Errorf("devices = %+v", rec.devices)
	}
}

func TestListener_BrowseFailure(t *testing.T) {
	cause := errors.New("no multicast interface")
	l := NewListener(&recordingListener{}, Options{
		NewBrowser: func() (Browser, error) { return &fakeBrowser{err: cause}, nil },
	})

	err := l.Listen(context.Background())
	if !errors.Is(err, cause) {
		t.Errorf("Listen() error = %v, want %v", err, cause)
	}
}

func TestListener_ResolverFailure(t *testing.T) {
	cause := errors.New("socket: permission denied")
	l := NewListener(&recordingListener{}, Options{
		NewBrowser: func() (Browser, error) { return nil, cause },
	})

	err := l.Listen(context.Background())
	if !errors.Is(err, cause) {
		t.Errorf("Listen() error = %v, want %v", err, cause)
	}
}

func TestNewListener_Defaults(t *testing.T) {
	l := NewListener(&recordingListener{}, Options{})

	if l.serviceType != DefaultServiceType {
		t.Errorf("serviceType = %q, want %q", l.serviceType, DefaultServiceType)
	}
	if l.domain != DefaultDomain {
		t.Errorf("domain = %q, want %q", l.domain, DefaultDomain)
	}
}

func TestListener_BrowseEndsOnItsOwn(t *testing.T) {
	rec := &recordingListener{}
	browser := &fakeBrowser{
		entries:   []*zeroconf.ServiceEntry{newEntry("a", []net.IP{net.ParseIP("10.0.0.1")}, nil, "sn=a")},
		stopEarly: true,
	}
	l := NewListener(rec, Options{
		NewBrowser: func() (Browser, error) { return browser, nil },
	})

	done := make(chan error, 1)
	go func() { done <- l.Listen(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, errBrowseStopped) {
			t.Errorf("Listen() error = %v, want %v", err, errBrowseStopped)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen still running after the entries stream closed")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.devices) != 1 {
		t.Errorf("got %d devices, want 1 delivered before the stream ended", len(rec.devices))
	}
}
