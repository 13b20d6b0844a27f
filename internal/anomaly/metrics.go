package anomaly

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"carewatch/internal/types"
)

// Window sizes.
const (
	recentMoodWindow    = 10
	baselineMoodWindow  = 40 // samples 11..50
	conversationWindow  = 20
	historicalWeeks     = 4
	activityDailyWindow = 24 * time.Hour
	weekWindow          = 7 * 24 * time.Hour
	monthWindow         = 30 * 24 * time.Hour
)

// SignalReader reads the aggregate windows the analyzer needs.
type SignalReader interface {
	CountActivitiesSince(ctx context.Context, since time.Time) (int, error)
	RecentMoodSamples(ctx context.Context, limit, offset int) ([]types.MoodSample, error)
	CountNightIncidents(ctx context.Context, from, to time.Time) (int, error)
	RecentConversations(ctx context.Context, limit int) ([]types.ConversationSample, error)
}

// Metrics are the aggregates sent for analysis. No raw records leave the
// service.
type Metrics struct {
	DailyActivity         float64 `json:"daily_activity"`
	WeeklyAvgActivity     float64 `json:"weekly_avg_activity"`
	MonthlyAvgActivity    float64 `json:"monthly_avg_activity"`
	RecentAnxiety         float64 `json:"recent_anxiety"`
	BaselineAnxiety       float64 `json:"baseline_anxiety"`
	AnxietyChange         float64 `json:"anxiety_change"`
	RecentWeekIncidents   int     `json:"recent_week_incidents"`
	HistoricalWeeklyRate  float64 `json:"historical_weekly_incidents"`
	AvgConversationLength float64 `json:"avg_conversation_length"`
	ConversationsSampled  int     `json:"conversations_sampled"`
}

// patternData flattens the metrics for storage on an alert.
func (m Metrics) patternData() types.PatternData {
	return types.PatternData{
		"daily_activity":              m.DailyActivity,
		"weekly_avg_activity":         m.WeeklyAvgActivity,
		"monthly_avg_activity":        m.MonthlyAvgActivity,
		"recent_anxiety":              m.RecentAnxiety,
		"baseline_anxiety":            m.BaselineAnxiety,
		"anxiety_change":              m.AnxietyChange,
		"recent_week_incidents":       m.RecentWeekIncidents,
		"historical_weekly_incidents": m.HistoricalWeeklyRate,
		"avg_conversation_length":     m.AvgConversationLength,
	}
}

// collectMetrics fetches every window concurrently and derives the
// aggregates. Any fetch error fails the collection.
func collectMetrics(ctx context.Context, r SignalReader, now time.Time) (Metrics, error) {
	var (
		count24h, count7d, count30d int
		recentMood, baselineMood    []types.MoodSample
		weekIncidents, olderInc     int
		conversations               []types.ConversationSample
	)
	weekAgo := now.Add(-weekWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		count24h, err = r.CountActivitiesSince(gctx, now.Add(-activityDailyWindow))
		return err
	})
	g.Go(func() (err error) {
		count7d, err = r.CountActivitiesSince(gctx, weekAgo)
		return err
	})
	g.Go(func() (err error) {
		count30d, err = r.CountActivitiesSince(gctx, now.Add(-monthWindow))
		return err
	})
	g.Go(func() (err error) {
		recentMood, err = r.RecentMoodSamples(gctx, recentMoodWindow, 0)
		return err
	})
	g.Go(func() (err error) {
		baselineMood, err = r.RecentMoodSamples(gctx, baselineMoodWindow, recentMoodWindow)
		return err
	})
	g.Go(func() (err error) {
		weekIncidents, err = r.CountNightIncidents(gctx, weekAgo, now)
		return err
	})
	g.Go(func() (err error) {
		olderInc, err = r.CountNightIncidents(gctx, time.Time{}, weekAgo)
		return err
	})
	g.Go(func() (err error) {
		conversations, err = r.RecentConversations(gctx, conversationWindow)
		return err
	})
	if err := g.Wait(); err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		DailyActivity:        float64(count24h),
		WeeklyAvgActivity:    float64(count7d) / 7,
		MonthlyAvgActivity:   float64(count30d) / 30,
		RecentAnxiety:        meanAnxiety(recentMood),
		BaselineAnxiety:      meanAnxiety(baselineMood),
		RecentWeekIncidents:  weekIncidents,
		HistoricalWeeklyRate: float64(olderInc) / historicalWeeks,
		ConversationsSampled: len(conversations),
	}
	m.AnxietyChange = m.RecentAnxiety - m.BaselineAnxiety
	if len(conversations) > 0 {
		total := 0
		for _, c := range conversations {
			total += c.MessageCount
		}
		m.AvgConversationLength = float64(total) / float64(len(conversations))
	}
	return m, nil
}

// meanAnxiety averages anxiety levels, counting missing values as zero. An
// empty window yields 0.
func meanAnxiety(samples []types.MoodSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		if s.AnxietyLevel != nil {
			sum += *s.AnxietyLevel
		}
	}
	return sum / float64(len(samples))
}
