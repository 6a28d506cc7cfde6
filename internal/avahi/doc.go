// Package avahi discovers services through the Avahi daemon over the system D-Bus.
//
// A Listener drives one browse session for a single service type and turns
// every resolvable announcement into a device.Device for a device.Listener.
//
// # Lifecycle
//
//	disconnected -> connected -> browsing -> listening
//	                                      \-> terminated (fatal error)
//
//  1. Dial opens the system bus and checks the daemon answers
//  2. ServiceBrowserNew starts browsing on all interfaces and protocols
//  3. ItemNew, ItemRemove, Failure, AllForNow and CacheExhausted are
//     subscribed as separate streams and merged into one dispatch loop
//  4. Each ItemNew is resolved with ResolveService and reported; ItemRemove
//     is only logged
//
// # Errors
//
// Connection, browse and subscribe failures end Listen and are returned as
// *ConnectError, *BrowseError and *SubscribeError. A malformed signal or a
// failed resolution is logged at warning level and skipped; it is never
// retried.
//
// # Usage Example
//
//	svc := app.NewDiscoverService(console.NewPrinter(os.Stdout, console.FormatDetailed))
//	l := avahi.NewListener(svc, avahi.Options{ServiceType: "_discover._tcp"})
//	if err := l.Listen(ctx); err != nil {
//	    log.Fatal(err)
//	}
package avahi
