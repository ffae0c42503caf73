package stub

import "time"

const legacyFirstByteShare = 0.1

// LegacyTiming converts the signed request/response time pair of older stub
// definitions, both in seconds, into a first-byte delay and a Transfer.
func LegacyTiming(requestTime, responseTime float64) (time.Duration, Transfer) {
	return secondsToDuration(requestTime), LegacyTransfer(responseTime)
}

// SplitLegacyResponseTime maps the oldest single responseTime convention
// onto the two timing parameters: 10% of it is spent before the first byte
// and 90% transferring. Negative values are scaled the same way, so the
// resulting rate is 90% of the given magnitude.
func SplitLegacyResponseTime(responseTime float64) (time.Duration, Transfer) {
	requestTime := responseTime * legacyFirstByteShare
	if requestTime < 0 {
		requestTime = 0
	}
	return LegacyTiming(requestTime, responseTime*(1-legacyFirstByteShare))
}
