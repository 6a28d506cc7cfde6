package avahi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	goavahi "github.com/holoplot/go-avahi"
	"go.uber.org/zap"

	"github.com/muurk/devwatch/internal/logging"
)

// Avahi D-Bus names
const (
	DaemonName       = "org.freedesktop.Avahi"
	ServerInterface  = "org.freedesktop.Avahi.Server"
	BrowserInterface = "org.freedesktop.Avahi.ServiceBrowser"
)

// Service browser signal members
const (
	MemberItemNew        = "ItemNew"
	MemberItemRemove     = "ItemRemove"
	MemberFailure        = "Failure"
	MemberAllForNow      = "AllForNow"
	MemberCacheExhausted = "CacheExhausted"
)

// Avahi interface and protocol selectors
const (
	InterfaceUnspec int32 = -1
	ProtoUnspec     int32 = -1
	ProtoInet       int32 = 0
	ProtoInet6      int32 = 1
)

const (
	// subscriptionBuffer is the per-stream channel capacity
	subscriptionBuffer = 64

	// pendingLimit caps browser signals held before a stream claims them
	pendingLimit = 256
)

// ErrClosed is returned when subscribing on a closed bus
var ErrClosed = errors.New("bus connection closed")

// Bus is the part of the Avahi daemon the listener talks to.
type Bus interface {
	// ServiceBrowserNew starts a browse session and returns its object path
	ServiceBrowserNew(ctx context.Context, iface, protocol int32, serviceType, domain string, flags uint32) (dbus.ObjectPath, error)

	// Subscribe attaches to one signal member of a browse session
	Subscribe(ctx context.Context, browser dbus.ObjectPath, member string) (*Subscription, error)

	// ResolveService resolves an announcement into host, address, port and TXT data
	ResolveService(ctx context.Context, a Announcement) (Resolution, error)

	// ServiceBrowserFree releases a browse session
	ServiceBrowserFree(browser dbus.ObjectPath) error

	// InterfaceName maps an interface index to its name, or "" if unknown
	InterfaceName(index int32) string

	// Connected reports whether the bus connection is still usable
	Connected() bool

	Close() error
}

// Subscription is one browser event stream. C is closed when the bus
// connection goes away.
type Subscription struct {
	C <-chan *dbus.Signal

	once sync.Once
	stop func()
}

// NewSubscription wraps a signal channel. stop runs once on Close.
func NewSubscription(c <-chan *dbus.Signal, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

// Close detaches the stream. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// DialFunc opens a Bus
type DialFunc func(ctx context.Context) (Bus, error)

// systemBus is a Bus over the system D-Bus.
// go-avahi handles the daemon version and interface names. Browser sessions,
// their signals and resolves go through godbus directly so every signal can
// be decoded and reported, and a cancelled context interrupts a slow resolve.
type systemBus struct {
	conn   *dbus.Conn
	server *goavahi.Server
	router *router
	raw    chan *dbus.Signal
}

// Dial connects to the system bus and checks that the Avahi daemon answers
func Dial(ctx context.Context) (Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to open system bus: %w", err)
	}

	server, err := goavahi.ServerNew(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Avahi server proxy: %w", err)
	}

	version, err := server.GetVersionString()
	if err != nil {
		server.Close()
		conn.Close()
		return nil, fmt.Errorf("avahi daemon not responding: %w", err)
	}
	logging.Info("Connected to Avahi daemon", zap.String("version", version))

	// Match every browser signal from the daemon up front. Avahi starts
	// emitting as soon as ServiceBrowserNew returns, before a per-session
	// match could be installed.
	err = conn.AddMatchSignalContext(ctx,
		dbus.WithMatchSender(DaemonName),
		dbus.WithMatchInterface(BrowserInterface),
	)
	if err != nil {
		server.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to add browser signal match: %w", err)
	}

	b := &systemBus{
		conn:   conn,
		server: server,
		router: newRouter(),
		raw:    make(chan *dbus.Signal, subscriptionBuffer),
	}
	conn.Signal(b.raw)
	go b.router.run(b.raw)

	return b, nil
}

func (b *systemBus) ServiceBrowserNew(ctx context.Context, iface, protocol int32, serviceType, domain string, flags uint32) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	obj := b.conn.Object(DaemonName, dbus.ObjectPath("/"))
	err := obj.CallWithContext(ctx, ServerInterface+".ServiceBrowserNew", 0,
		iface, protocol, serviceType, domain, flags).Store(&path)
	if err != nil {
		return "", err
	}
	b.router.track(path)
	return path, nil
}

func (b *systemBus) Subscribe(ctx context.Context, browser dbus.ObjectPath, member string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.router.subscribe(browser, member)
}

func (b *systemBus) ResolveService(ctx context.Context, a Announcement) (Resolution, error) {
	var res Resolution
	obj := b.conn.Object(DaemonName, dbus.ObjectPath("/"))
	call := obj.CallWithContext(ctx, ServerInterface+".ResolveService", 0,
		a.Interface, a.Protocol, a.Name, a.Type, a.Domain, ProtoUnspec, uint32(0))
	err := call.Store(
		&res.Interface, &res.Protocol, &res.Name, &res.Type, &res.Domain,
		&res.Host, &res.AddressProtocol, &res.Address, &res.Port, &res.TXT, &res.Flags,
	)
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}

func (b *systemBus) ServiceBrowserFree(browser dbus.ObjectPath) error {
	b.router.forget(browser)
	obj := b.conn.Object(DaemonName, browser)
	return obj.Call(BrowserInterface+".Free", 0).Err
}

func (b *systemBus) InterfaceName(index int32) string {
	if index < 0 {
		return ""
	}
	name, err := b.server.GetNetworkInterfaceNameByIndex(index)
	if err != nil {
		return ""
	}
	return name
}

func (b *systemBus) Connected() bool {
	return b.conn.Connected()
}

// Close releases the server proxy and the connection. The router stops when
// godbus closes the raw signal channel.
func (b *systemBus) Close() error {
	b.server.Close()
	return b.conn.Close()
}

type routeKey struct {
	path   dbus.ObjectPath
	member string
}

type subscriber struct {
	ch   chan *dbus.Signal
	done chan struct{}
}

// router fans the single godbus signal channel out to per-session,
// per-member subscriptions. Browser signals nobody has subscribed to yet are
// held, whether or not their path is tracked: Avahi can emit ItemNew for
// cached services before the ServiceBrowserNew reply reaches us. Held
// signals are replayed on subscribe.
type router struct {
	mu      sync.Mutex
	closed  bool
	tracked map[dbus.ObjectPath]bool
	subs    map[routeKey]*subscriber
	pending []*dbus.Signal
}

func newRouter() *router {
	return &router{
		tracked: make(map[dbus.ObjectPath]bool),
		subs:    make(map[routeKey]*subscriber),
	}
}

func (r *router) run(raw <-chan *dbus.Signal) {
	for sig := range raw {
		r.route(sig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.pending = nil
	for key, sub := range r.subs {
		close(sub.ch)
		delete(r.subs, key)
	}
}

func (r *router) route(sig *dbus.Signal) {
	iface, member := splitName(sig.Name)
	if iface != BrowserInterface {
		return
	}

	r.mu.Lock()
	sub, ok := r.subs[routeKey{sig.Path, member}]
	if !ok {
		r.hold(sig)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case sub.ch <- sig:
	case <-sub.done:
	}
}

// hold queues an unclaimed signal. When full, the oldest signal of an
// untracked path goes first, then the oldest overall. Caller holds r.mu.
func (r *router) hold(sig *dbus.Signal) {
	if len(r.pending) >= pendingLimit {
		drop := 0
		for i, held := range r.pending {
			if !r.tracked[held.Path] {
				drop = i
				break
			}
		}
		logging.Debug("Dropping unclaimed browser signal",
			zap.String("path", string(r.pending[drop].Path)),
			zap.String("signal", r.pending[drop].Name),
		)
		r.pending = append(r.pending[:drop], r.pending[drop+1:]...)
	}
	r.pending = append(r.pending, sig)
}

// track marks path as one of ours. Signals already held for it stay queued
// for its subscribers.
func (r *router) track(path dbus.ObjectPath) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked[path] = true
}

func (r *router) forget(path dbus.ObjectPath) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, path)
	keep := r.pending[:0]
	for _, sig := range r.pending {
		if sig.Path != path {
			keep = append(keep, sig)
		}
	}
	r.pending = keep
}

// held returns the number of queued signals for path
func (r *router) held(path dbus.ObjectPath) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sig := range r.pending {
		if sig.Path == path {
			n++
		}
	}
	return n
}

func (r *router) subscribe(path dbus.ObjectPath, member string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	key := routeKey{path, member}
	if _, exists := r.subs[key]; exists {
		return nil, fmt.Errorf("already subscribed to %s on %s", member, path)
	}

	// Replay held signals for this member in arrival order
	var replay, keep []*dbus.Signal
	for _, sig := range r.pending {
		if _, m := splitName(sig.Name); sig.Path == path && m == member {
			replay = append(replay, sig)
		} else {
			keep = append(keep, sig)
		}
	}
	r.pending = keep

	sub := &subscriber{
		ch:   make(chan *dbus.Signal, subscriptionBuffer+len(replay)),
		done: make(chan struct{}),
	}
	for _, sig := range replay {
		sub.ch <- sig
	}
	r.subs[key] = sub

	return NewSubscription(sub.ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.subs[key] == sub {
			delete(r.subs, key)
		}
		close(sub.done)
	}), nil
}
