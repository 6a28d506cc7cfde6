package device

import (
	"fmt"
	"time"
)

// Device is one resolved device as advertised on the network.
// Values are compared with ==; two devices with equal fields are interchangeable.
type Device struct {
	// HW is the hardware identifier (TXT key "hw")
	HW string `json:"hw"`

	// SN is the serial number (TXT key "sn" or "serial")
	SN string `json:"sn"`

	// Version is the firmware version string (TXT key "version", "ver" or "fw")
	Version string `json:"version"`

	// UptimeSeconds is the device uptime reported in TXT key "uptime"
	UptimeSeconds uint64 `json:"uptime_seconds"`

	// UnixEpoch is when the device was observed, in seconds since epoch.
	// Taken from TXT key "ts" or "epoch" when present.
	UnixEpoch uint64 `json:"unix_epoch"`

	// Custom is every text TXT entry joined with a single space
	Custom string `json:"custom"`
}

// New builds a Device from parsed TXT data. observed is used as the
// timestamp when the TXT data carries none.
func New(txt TXT, observed time.Time) Device {
	d := Device{
		HW:            txt.Get("hw"),
		SN:            txt.first("sn", "serial"),
		Version:       txt.first("version", "ver", "fw"),
		UptimeSeconds: txt.uint("uptime"),
		UnixEpoch:     txt.uint("ts", "epoch"),
		Custom:        txt.Custom(),
	}
	if !txt.has("ts", "epoch") && observed.Unix() > 0 {
		d.UnixEpoch = uint64(observed.Unix())
	}
	return d
}

// ObservedAt returns the observation timestamp as a time.Time
func (d Device) ObservedAt() time.Time {
	return time.Unix(int64(d.UnixEpoch), 0)
}

// Uptime returns the reported uptime as a duration
func (d Device) Uptime() time.Duration {
	return time.Duration(d.UptimeSeconds) * time.Second
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("Device %s (hw %s, version %s, up %s)", d.SN, d.HW, d.Version, d.Uptime())
}
