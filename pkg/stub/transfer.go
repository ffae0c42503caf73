package stub

import (
	"fmt"
	"math"
	"time"
)

const bytesPerKB = 1024

// Standard download speeds in KB/s.
const (
	SpeedGPRS   = 56.0 / 8
	SpeedEDGE   = 128.0 / 8
	Speed3G     = 3200.0 / 8
	Speed3GPlus = 7200.0 / 8
	SpeedWifi   = 12000.0 / 8
)

type transferKind int

const (
	transferFixed transferKind = iota
	transferRate
)

// Transfer controls how long delivering the body takes once the first byte
// is due. The zero value is an instant transfer.
type Transfer struct {
	kind     transferKind
	duration time.Duration
	rate     float64
}

// FixedDuration delivers the whole body over d.
func FixedDuration(d time.Duration) Transfer {
	return Transfer{kind: transferFixed, duration: d}
}

// Rate delivers the body at kbps kilobytes (1024 bytes) per second.
func Rate(kbps float64) Transfer {
	return Transfer{kind: transferRate, rate: kbps}
}

// LegacyTransfer translates the single signed timing value used by older
// stub definitions: a non-negative value is a duration in seconds, a
// negative one is a rate whose magnitude is in KB/s.
func LegacyTransfer(seconds float64) Transfer {
	if seconds < 0 {
		return Rate(-seconds)
	}
	return FixedDuration(secondsToDuration(seconds))
}

func (t Transfer) IsRate() bool {
	return t.kind == transferRate
}

// FixedDuration returns the configured duration and whether t is fixed.
func (t Transfer) FixedDuration() (time.Duration, bool) {
	return t.duration, t.kind == transferFixed
}

// Rate returns the configured rate in KB/s and whether t is a rate.
func (t Transfer) Rate() (float64, bool) {
	return t.rate, t.kind == transferRate
}

// Duration is the time needed to transfer totalBytes. Empty bodies take no
// time regardless of the variant.
func (t Transfer) Duration(totalBytes int64) time.Duration {
	if totalBytes <= 0 {
		return 0
	}
	if t.kind == transferRate {
		return secondsToDuration(float64(totalBytes) / (t.rate * bytesPerKB))
	}
	return t.duration
}

func (t Transfer) String() string {
	if t.kind == transferRate {
		return fmt.Sprintf("%g KB/s", t.rate)
	}
	return t.duration.String()
}

func (t Transfer) validate() error {
	switch t.kind {
	case transferFixed:
		if t.duration < 0 {
			return &ValidationError{Field: "transfer duration",
				Reason: fmt.Sprintf("must not be negative, got %v", t.duration)}
		}
	case transferRate:
		if math.IsNaN(t.rate) || math.IsInf(t.rate, 0) || t.rate <= 0 {
			return &ValidationError{Field: "transfer rate",
				Reason: fmt.Sprintf("must be a positive number of KB/s, got %v", t.rate)}
		}
	default:
		return &ValidationError{Field: "transfer", Reason: "unknown timing kind"}
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
