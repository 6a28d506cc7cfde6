// Package device holds the Device record and the two ports around it.
//
// Listener is the driving port: transports call OnDeviceDiscovered for every
// resolved announcement. View is the driven port: the application calls
// DisplayDevices to render. Neither port knows about D-Bus, mDNS or the
// terminal, so the transport and the renderer can be swapped independently.
//
// Devices are built only by transports, from the TXT records of a resolved
// service:
//
//	txt := device.ParseTXT(resolved.Txt)
//	d := device.New(txt, time.Now())
//	listener.OnDeviceDiscovered(d)
package device
