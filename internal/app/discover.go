// Package app contains the application services that sit between the
// driving and driven ports.
package app

import (
	"go.uber.org/zap"

	"github.com/muurk/devwatch/internal/device"
	"github.com/muurk/devwatch/internal/logging"
)

// DiscoverService forwards discovered devices to a view.
// It knows nothing about transports or rendering.
type DiscoverService struct {
	view device.View
}

// NewDiscoverService binds a view for the lifetime of the service
func NewDiscoverService(view device.View) *DiscoverService {
	return &DiscoverService{view: view}
}

// OnDeviceDiscovered implements device.Listener. Each call renders exactly one
// one-element batch before returning.
func (s *DiscoverService) OnDeviceDiscovered(d device.Device) {
	logging.Debug("Forwarding discovered device to view",
		zap.String("sn", d.SN),
		zap.String("hw", d.HW),
	)
	s.view.DisplayDevices([]device.Device{d})
}

var _ device.Listener = (*DiscoverService)(nil)
