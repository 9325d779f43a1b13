package scheduler

import (
	"regexp"
	"strconv"
	"strings"

	"galebot/internal/broker"
	"galebot/internal/executor"
	"galebot/internal/logger"
)

// Signal is one published trade call: "M<duration>;<asset>;<HH:mm>;<direction>",
// e.g. "M1;EURUSD-OTC;14:05;call".
type Signal struct {
	Duration  int
	Active    string
	Time      string
	Direction broker.Direction
}

var signalRe = regexp.MustCompile(`^M(\d+);([A-Za-z0-9-]+);(\d{2}:\d{2});(call|put)$`)

// ParseSignal parses one token. Returns ok=false on any malformed token.
func ParseSignal(token string) (Signal, bool) {
	m := signalRe.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return Signal{}, false
	}
	duration, err := strconv.Atoi(m[1])
	if err != nil || duration <= 0 {
		return Signal{}, false
	}
	return Signal{
		Duration:  duration,
		Active:    strings.ToUpper(m[2]),
		Time:      m[3],
		Direction: broker.Direction(m[4]),
	}, true
}

// ParseSignals splits text on whitespace and parses every token, skipping
// and logging malformed ones.
func ParseSignals(text string) []Signal {
	var signals []Signal
	for _, token := range strings.Fields(text) {
		sig, ok := ParseSignal(token)
		if !ok {
			logger.Warnf("scheduler: skipping malformed signal %q", token)
			continue
		}
		signals = append(signals, sig)
	}
	return signals
}

// Operation converts a signal into the executor's input.
func (s Signal) Operation() executor.Operation {
	return executor.Operation{
		Time:      s.Time,
		Active:    s.Active,
		Direction: s.Direction,
		Duration:  s.Duration,
	}
}
