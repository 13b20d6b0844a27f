package monitor

import (
	"time"

	"carewatch/internal/types"
)

// Phase is the cooldown state of a condition.
type Phase int

const (
	// Idle conditions may be evaluated.
	Idle Phase = iota
	// Cooling conditions were triggered within their cooldown window.
	Cooling
)

func (p Phase) String() string {
	if p == Cooling {
		return "cooling"
	}
	return "idle"
}

// Cooldown is the result of CooldownState.
type Cooldown struct {
	Phase     Phase
	Remaining time.Duration
}

// CooldownState reports whether a condition last triggered at lastTriggered is
// still cooling at now. A non-positive cooldown uses the default. The state is
// derived entirely from persisted data, so it survives restarts.
func CooldownState(lastTriggered *time.Time, cooldownMinutes int, now time.Time) Cooldown {
	if lastTriggered == nil {
		return Cooldown{Phase: Idle}
	}
	if cooldownMinutes <= 0 {
		cooldownMinutes = types.DefaultCooldownMinutes
	}
	window := time.Duration(cooldownMinutes) * time.Minute
	elapsed := now.Sub(*lastTriggered)
	if elapsed >= window {
		return Cooldown{Phase: Idle}
	}
	return Cooldown{Phase: Cooling, Remaining: window - elapsed}
}
