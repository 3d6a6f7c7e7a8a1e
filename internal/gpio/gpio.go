// Package gpio provides LED output driving with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives a single GPIO output line.
type Writer interface {
	// Set drives the line to the given logical level (true = high).
	// Polarity inversion, if any, is applied by the implementation.
	Set(high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi header LED.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 16 // BCM numbering
)
