package broker

import "time"

// OptionKind is the option-type discriminator the wire protocol requires:
// near-term minute expirations are "short" options, quarter-hour
// expirations are "long" ones.
type OptionKind int

const (
	KindLong  OptionKind = 1
	KindShort OptionKind = 3
)

// ExpirationTime picks the expiration timestamp for an order given the
// broker's server clock and the requested duration in minutes.
//
// The current minute is floored; the anchor is one minute out when that
// still leaves at least 30 seconds, otherwise two. The candidate set is the
// six consecutive minute slots from the anchor plus every quarter-hour-
// aligned minute from anchor+5m up to target+15m, target being now +
// duration. The candidate closest to the target wins, first-encountered on
// ties. A winner among the first five minute slots is a short option.
func ExpirationTime(serverUnix int64, durationMin int) (int64, OptionKind) {
	now := time.Unix(serverUnix, 0).UTC()
	anchor := now.Truncate(time.Minute)

	if anchor.Add(time.Minute).Unix() > serverUnix+30 {
		anchor = anchor.Add(time.Minute)
	} else {
		anchor = anchor.Add(2 * time.Minute)
	}

	candidates := make([]int64, 0, 8)
	for i := 0; i < 6; i++ {
		candidates = append(candidates, anchor.Add(time.Duration(i)*time.Minute).Unix())
	}

	target := serverUnix + int64(durationMin)*60
	for p := anchor.Add(5 * time.Minute); p.Unix() <= target+15*60; p = p.Add(time.Minute) {
		if p.Minute()%15 == 0 {
			candidates = append(candidates, p.Unix())
		}
	}

	closest := candidates[0]
	closestIdx := 0
	for i, c := range candidates {
		if absInt64(c-target) < absInt64(closest-target) {
			closest = c
			closestIdx = i
		}
	}

	kind := KindLong
	if closestIdx < 5 {
		kind = KindShort
	}
	return closest, kind
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
