package capacity

import "math"

// Metrics is the demand snapshot sampled every poll_interval (§4.5).
type Metrics struct {
	QueueLength   int
	TotalSessions int
	TotalSlots    int
	UsedSlots     int
}

// Utilization is used/total, or 0 when there is no capacity at all.
func (m Metrics) Utilization() float64 {
	if m.TotalSlots == 0 {
		return 0
	}
	return float64(m.UsedSlots) / float64(m.TotalSlots)
}

// needsBootstrap implements §4.5's "Bootstrap" rule.
func needsBootstrap(totalSessions, minSessions int) bool {
	return totalSessions < minSessions
}

// starvationOverride implements §4.5's "Starvation override" rule: when the
// queue already holds a full batch's worth of players and there is zero
// spare capacity, scale up immediately, bypassing cooldown.
func starvationOverride(m Metrics, playersPerGame, availableSlots, maxSessions int) bool {
	return m.QueueLength >= playersPerGame && availableSlots == 0 && m.TotalSessions < maxSessions
}

// shouldScaleUp implements §4.5's "Scale up" utilization gate.
func shouldScaleUp(m Metrics, threshold float64) bool {
	return m.Utilization() > threshold
}

// neededSessions implements §4.5's scale-up sizing formula: ceil of
// in-game + queued players, divided by how many players a game needs and
// how many games a session can host concurrently, clamped to [min, max].
func neededSessions(playersInGame, queueLength, playersPerGame, slotsPerSession, min, max int) int {
	if playersPerGame <= 0 || slotsPerSession <= 0 {
		return clamp(min, min, max)
	}

	perSessionCapacity := float64(playersPerGame * slotsPerSession)
	demand := float64(playersInGame + queueLength)
	needed := int(math.Ceil(demand / perSessionCapacity))

	return clamp(needed, min, max)
}

// shouldScaleDown implements §4.5's "Scale down" utilization gate,
// independent of the sustained-low-usage timer (owned by the caller).
func shouldScaleDown(m Metrics, threshold float64, minSessions int) bool {
	return m.Utilization() < threshold && m.TotalSessions > minSessions
}

func clamp(v, min, max int) int {
	if max < min {
		max = min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
