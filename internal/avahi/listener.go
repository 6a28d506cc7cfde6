package avahi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/devwatch/internal/device"
	"github.com/muurk/devwatch/internal/logging"
)

const (
	// DefaultServiceType is the service type browsed when none is configured
	DefaultServiceType = "_discover._tcp"

	// DefaultIdleInterval is how often an idle listener checks the connection
	DefaultIdleInterval = 5 * time.Second
)

// State is the listener lifecycle state
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateBrowsing
	StateListening
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBrowsing:
		return "browsing"
	case StateListening:
		return "listening"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configures a Listener. Zero values select the defaults.
type Options struct {
	// ServiceType to browse (default "_discover._tcp")
	ServiceType string

	// Domain restricts browsing; empty means the daemon's default domains
	Domain string

	// IdleInterval between connection checks while no events arrive
	IdleInterval time.Duration

	// Dial opens the bus (default Dial)
	Dial DialFunc

	// Now supplies observation timestamps (default time.Now)
	Now func() time.Time
}

// Listener browses one service type through the Avahi daemon and reports
// every resolved announcement to a device.Listener.
type Listener struct {
	listener     device.Listener
	serviceType  string
	domain       string
	idleInterval time.Duration
	dial         DialFunc
	now          func() time.Time

	state atomic.Int32
}

// NewListener creates a Listener that reports to l
func NewListener(l device.Listener, opts Options) *Listener {
	if opts.ServiceType == "" {
		opts.ServiceType = DefaultServiceType
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Listener{
		listener:     l,
		serviceType:  opts.ServiceType,
		domain:       opts.Domain,
		idleInterval: opts.IdleInterval,
		dial:         opts.Dial,
		now:          opts.Now,
	}
}

// State returns the current lifecycle state
func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	if old != s {
		logging.Debug("Listener state changed",
			zap.Stringer("from", old),
			zap.Stringer("to", s),
		)
	}
}

type eventKind int

const (
	eventAdd eventKind = iota
	eventRemove
	eventFailure
	eventAllForNow
	eventCacheExhausted
)

var streamMembers = []struct {
	kind   eventKind
	member string
}{
	{eventAdd, MemberItemNew},
	{eventRemove, MemberItemRemove},
	{eventFailure, MemberFailure},
	{eventAllForNow, MemberAllForNow},
	{eventCacheExhausted, MemberCacheExhausted},
}

type event struct {
	kind   eventKind
	signal *dbus.Signal
}

var (
	errStreamsClosed  = errors.New("browser event streams closed")
	errConnectionLost = errors.New("bus connection lost")
)

// Listen connects, starts the browse session and dispatches events until ctx
// is cancelled (returns nil) or a fatal error occurs. The connection and the
// browse session are released on every return path.
func (l *Listener) Listen(ctx context.Context) (err error) {
	l.setState(StateDisconnected)
	defer func() {
		if err != nil {
			l.setState(StateTerminated)
			logging.Error("Listener stopped", zap.Error(err))
		} else {
			l.setState(StateDisconnected)
		}
	}()

	bus, err := l.dial(ctx)
	if err != nil {
		return &ConnectError{Err: err}
	}
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			logging.Debug("Error closing bus connection", zap.Error(cerr))
		}
	}()
	l.setState(StateConnected)

	browser, err := bus.ServiceBrowserNew(ctx, InterfaceUnspec, ProtoUnspec, l.serviceType, l.domain, 0)
	if err != nil {
		return &BrowseError{ServiceType: l.serviceType, Err: err}
	}
	defer func() {
		if ferr := bus.ServiceBrowserFree(browser); ferr != nil {
			logging.Debug("Error freeing service browser", zap.Error(ferr))
		}
	}()
	l.setState(StateBrowsing)
	logging.Info("Browsing for services",
		zap.String("type", l.serviceType),
		zap.String("domain", l.domain),
		zap.String("browser", string(browser)),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	events := make(chan event)
	var wg sync.WaitGroup

	for _, s := range streamMembers {
		sub, err := bus.Subscribe(ctx, browser, s.member)
		if err != nil {
			cancel()
			wg.Wait()
			return &SubscribeError{Member: s.member, Err: err}
		}
		defer sub.Close()

		wg.Add(1)
		go forward(loopCtx, &wg, s.kind, sub.C, events)
	}
	// Runs before the subscription closes: stop the forwarders first
	defer func() {
		cancel()
		wg.Wait()
	}()

	go func() {
		wg.Wait()
		close(events)
	}()

	l.setState(StateListening)
	return l.dispatch(loopCtx, bus, events)
}

// forward copies one subscription into the shared event channel, preserving
// the order of that stream.
func forward(ctx context.Context, wg *sync.WaitGroup, kind eventKind, in <-chan *dbus.Signal, out chan<- event) {
	defer wg.Done()
	for {
		select {
		case sig, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- event{kind: kind, signal: sig}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, bus Bus, events <-chan event) error {
	ticker := time.NewTicker(l.idleInterval)
	defer ticker.Stop()

	active := false
	for {
		select {
		case <-ctx.Done():
			logging.Info("Listener cancelled", zap.Error(ctx.Err()))
			return nil

		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return &ConnectError{Lost: true, Err: errStreamsClosed}
			}
			active = true
			if err := l.handle(ctx, bus, ev); err != nil {
				return err
			}

		case <-ticker.C:
			if !active && !bus.Connected() {
				return &ConnectError{Lost: true, Err: errConnectionLost}
			}
			active = false
		}
	}
}

// handle processes one event. Only a browser Failure returns an error.
func (l *Listener) handle(ctx context.Context, bus Bus, ev event) error {
	switch ev.kind {
	case eventAdd:
		l.handleAdd(ctx, bus, ev.signal)

	case eventRemove:
		a, err := ParseAnnouncement(ev.signal)
		if err != nil {
			l.warnDecode(err)
			return nil
		}
		logging.LogAnnouncement("removed", a.Fields())

	case eventFailure:
		return &BrowseError{ServiceType: l.serviceType, Err: errors.New(parseFailure(ev.signal))}

	case eventAllForNow:
		logging.Debug("Browser reported all cached services", zap.String("type", l.serviceType))

	case eventCacheExhausted:
		logging.Debug("Browser cache exhausted", zap.String("type", l.serviceType))
	}
	return nil
}

func (l *Listener) handleAdd(ctx context.Context, bus Bus, sig *dbus.Signal) {
	a, err := ParseAnnouncement(sig)
	if err != nil {
		l.warnDecode(err)
		return
	}
	logging.LogAnnouncement("added", a.Fields())

	res, err := bus.ResolveService(ctx, a)
	if err != nil {
		logging.Warn("Skipping service",
			zap.Error(&ResolveError{Name: a.Name, Type: a.Type, Err: err}),
			zap.String("interface_name", bus.InterfaceName(a.Interface)),
		)
		return
	}
	logging.LogResolution(res.Fields(), res.Host, res.AddressProtocol, res.Address, res.Port, len(res.TXT))

	l.listener.OnDeviceDiscovered(l.buildDevice(res))
}

// buildDevice turns a resolution into a device record
func (l *Listener) buildDevice(res Resolution) device.Device {
	txt := device.ParseTXT(res.TXT)
	logging.LogTXT(res.Name, txt.Skipped)
	return device.New(txt, l.now())
}

func (l *Listener) warnDecode(err error) {
	fields := []zap.Field{zap.Error(err)}
	var de *DecodeError
	if errors.As(err, &de) {
		fields = append(fields,
			zap.String("member", de.Member),
			zap.String("dbus_interface", de.Interface),
			zap.String("path", de.Path),
			zap.String("signature", de.Signature),
		)
	}
	logging.Warn("Skipping malformed browser event", fields...)
}
