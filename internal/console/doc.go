// Package console renders discovered devices as text.
//
// Printer implements device.View. The detailed format prints one styled
// block per device; colour is applied only when the writer is a terminal.
// The compact format prints one line per device and the json format one
// JSON object per line, both suitable for piping.
package console
