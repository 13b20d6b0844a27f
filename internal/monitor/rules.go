package monitor

import (
	"context"
	"fmt"
	"time"

	"carewatch/internal/types"
)

// Fixed rule windows.
const (
	moodWindow          = 5
	distressWindow      = 10
	distressLevel       = 7.0
	nightIncidentWindow = time.Hour
)

var nightIncidentSeverities = []types.Severity{types.SeverityMedium, types.SeverityHigh}

// signals holds the data one condition type needs. Only the fields relevant
// to the type are populated.
type signals struct {
	latestActivity *types.ActivityRecord
	mood           []types.MoodSample
	incidents      []types.NightIncident
	distress       []types.ActivityRecord
}

// outcome is the result of applying a rule to its signals.
type outcome struct {
	triggered bool
	observed  float64
	detail    string
}

// fetchSignals loads the window for one condition type.
func fetchSignals(ctx context.Context, r SignalReader, ct types.ConditionType, now time.Time) (signals, error) {
	var s signals
	var err error
	switch ct {
	case types.ConditionNoInteraction:
		s.latestActivity, err = r.LatestActivity(ctx)
	case types.ConditionHighAnxiety:
		s.mood, err = r.RecentMoodSamples(ctx, moodWindow, 0)
	case types.ConditionNightIncident:
		s.incidents, err = r.NightIncidentsSince(ctx, nightIncidentSeverities, now.Add(-nightIncidentWindow))
	case types.ConditionProlongedDistress:
		s.distress, err = r.RecentActivitiesByType(ctx, types.ActivityAnxietyDetection, distressWindow)
	default:
		return s, types.NewAppError(types.ErrCodeValidationConditionType,
			fmt.Sprintf("unknown condition type %q", ct), nil)
	}
	return s, err
}

// evaluate applies the condition's rule. Every comparison is inclusive.
func evaluate(c *types.AlertCondition, s signals, now time.Time) outcome {
	switch c.ConditionType {
	case types.ConditionNoInteraction:
		return evalNoInteraction(c, s.latestActivity, now)
	case types.ConditionHighAnxiety:
		return evalHighAnxiety(c, s.mood)
	case types.ConditionNightIncident:
		return evalNightIncident(s.incidents, now)
	case types.ConditionProlongedDistress:
		return evalProlongedDistress(c, s.distress)
	}
	return outcome{}
}

// evalNoInteraction never triggers on an empty history.
func evalNoInteraction(c *types.AlertCondition, latest *types.ActivityRecord, now time.Time) outcome {
	if latest == nil {
		return outcome{detail: "No interactions have been recorded yet."}
	}
	hours := now.Sub(latest.CreatedDate).Hours()
	threshold := c.ThresholdUnit.Hours(c.ThresholdValue)
	return outcome{
		triggered: hours >= threshold,
		observed:  hours,
		detail: fmt.Sprintf("No interaction for %.1f hours (threshold %.1f hours). Last activity at %s.",
			hours, threshold, latest.CreatedDate.UTC().Format(time.RFC3339)),
	}
}

func evalHighAnxiety(c *types.AlertCondition, samples []types.MoodSample) outcome {
	if len(samples) == 0 {
		return outcome{detail: "No mood samples available."}
	}
	var sum float64
	for _, m := range samples {
		if m.AnxietyLevel != nil {
			sum += *m.AnxietyLevel
		}
	}
	mean := sum / float64(len(samples))
	return outcome{
		triggered: mean >= c.ThresholdValue,
		observed:  mean,
		detail: fmt.Sprintf("Average anxiety over the last %d mood samples is %.1f (threshold %.1f).",
			len(samples), mean, c.ThresholdValue),
	}
}

func evalNightIncident(incidents []types.NightIncident, now time.Time) outcome {
	cutoff := now.Add(-nightIncidentWindow)
	recent := 0
	var latest types.NightIncident
	for _, inc := range incidents {
		if inc.Severity != types.SeverityMedium && inc.Severity != types.SeverityHigh {
			continue
		}
		if inc.Timestamp.Before(cutoff) {
			continue
		}
		if recent == 0 || inc.Timestamp.After(latest.Timestamp) {
			latest = inc
		}
		recent++
	}
	if recent == 0 {
		return outcome{detail: "No medium or high severity night incidents in the last hour."}
	}
	return outcome{
		triggered: true,
		observed:  float64(recent),
		detail: fmt.Sprintf("%d night incident(s) in the last hour; most recent: %s (%s) at %s.",
			recent, latest.IncidentType, latest.Severity, latest.Timestamp.UTC().Format(time.RFC3339)),
	}
}

func evalProlongedDistress(c *types.AlertCondition, records []types.ActivityRecord) outcome {
	count := 0
	for _, r := range records {
		if r.AnxietyLevel != nil && *r.AnxietyLevel >= distressLevel {
			count++
		}
	}
	return outcome{
		triggered: float64(count) >= c.ThresholdValue,
		observed:  float64(count),
		detail: fmt.Sprintf("%d of the last %d anxiety detections were at level %.0f or above (threshold %.0f).",
			count, len(records), distressLevel, c.ThresholdValue),
	}
}
