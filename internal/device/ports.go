package device

// Listener is notified for every device a transport resolves.
// Implementations must not fail: errors are absorbed and logged, since the
// caller is a transport event loop that has to keep processing events.
type Listener interface {
	OnDeviceDiscovered(d Device)
}

// View renders batches of devices. The batch may be empty.
// Rendering errors are swallowed by the implementation.
type View interface {
	DisplayDevices(devices []Device)
}
