package app

import (
	"testing"

	"github.com/muurk/devwatch/internal/device"
)

type recordingView struct {
	batches [][]device.Device
}

func (v *recordingView) DisplayDevices(devices []device.Device) {
	v.batches = append(v.batches, devices)
}

func TestDiscoverService_ForwardsOneBatchPerDevice(t *testing.T) {
	view := &recordingView{}
	var listener device.Listener = NewDiscoverService(view)

	devices := []device.Device{
		{SN: "1", HW: "a"},
		{SN: "2", HW: "b"},
		{SN: "3", HW: "c"},
	}

	for i, d := range devices {
		listener.OnDeviceDiscovered(d)

		if len(view.batches) != i+1 {
			t.Fatalf("after %d calls got %d batches, want %d", i+1, len(view.batches), i+1)
		}
		batch := view.batches[i]
		if len(batch) != 1 {
			t.Fatalf("batch %d has %d devices, want 1", i, len(batch))
		}
		if batch[0] != d {
			t.Errorf("batch %d = %+v, want %+v", i, batch[0], d)
		}
	}
}

func TestDiscoverService_IdenticalDevices(t *testing.T) {
	view := &recordingView{}
	svc := NewDiscoverService(view)

	d := device.Device{SN: "same"}
	svc.OnDeviceDiscovered(d)
	svc.OnDeviceDiscovered(d)

	if len(view.batches) != 2 {
		t.Errorf("got %d batches, want 2 (no deduplication)", len(view.batches))
	}
}
