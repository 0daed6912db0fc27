package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/unspiral/unspiral/internal/dates"
	"github.com/unspiral/unspiral/internal/insight"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/validate"
)

// AnalyzeWorrySpirals lists recent worry spirals with their parsed
// thought chains and surfaces recurring triggers.
func AnalyzeWorrySpirals(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	timeRange := dates.RangeMonth
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		timeRange = tr
	}

	limit := 10
	if v, ok := params["limit"]; ok {
		n, err := validate.Number(v, "limit", 1, 50)
		if err != nil {
			return failure(start, "%v", err)
		}
		limit = int(n)
	}

	win := dates.Window(now, timeRange)
	spiral := true
	items, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		IsWorrySpiral: &spiral,
		CreatedAfter:  &win.Start,
		CreatedBefore: &win.End,
		OrderBy:       store.OrderCreatedDesc,
		Limit:         limit,
	})
	if err != nil {
		return failure(start, "query worry spirals: %v", err)
	}

	payload := insight.WorrySpirals{
		Count:          len(items),
		Spirals:        []insight.Spiral{},
		CommonTriggers: []string{},
	}

	seen := map[string]bool{}
	for _, it := range items {
		steps := parseSpiralSteps(it.SpiralBreakdown, it.Title)
		payload.Spirals = append(payload.Spirals, insight.Spiral{
			Title:        it.Title,
			Category:     it.Category.String(),
			Steps:        steps,
			CreatedLabel: dates.RelativeLabel(now, it.CreatedAt),
		})
		// The first step of a spiral is its trigger.
		if len(steps) > 0 && len(payload.CommonTriggers) < 5 {
			trigger := steps[0]
			key := strings.ToLower(strings.TrimSpace(trigger))
			if key != "" && !seen[key] {
				seen[key] = true
				payload.CommonTriggers = append(payload.CommonTriggers, trigger)
			}
		}
	}

	return success(start, insight.FormatWorrySpirals(payload))
}

// parseSpiralSteps decodes the stored breakdown JSON. The extraction
// pipeline writes either {"steps": [...]} with string or object entries,
// or a bare string array. Malformed or empty breakdowns degrade to the
// item title as a single step.
func parseSpiralSteps(raw, title string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{title}
	}

	var wrapped struct {
		Steps []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Steps) > 0 {
		if steps := decodeSteps(wrapped.Steps); len(steps) > 0 {
			return steps
		}
	}

	var bare []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && len(bare) > 0 {
		if steps := decodeSteps(bare); len(steps) > 0 {
			return steps
		}
	}

	return []string{title}
}

func decodeSteps(raws []json.RawMessage) []string {
	var steps []string
	for _, r := range raws {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
			continue
		}
		var obj struct {
			Thought string `json:"thought"`
			Step    string `json:"step"`
		}
		if err := json.Unmarshal(r, &obj); err == nil {
			if t := strings.TrimSpace(obj.Thought); t != "" {
				steps = append(steps, t)
			} else if t := strings.TrimSpace(obj.Step); t != "" {
				steps = append(steps, t)
			}
		}
	}
	return steps
}

// GetMoodTimeline buckets stress/anxiety readings by the requested
// granularity, correlates each bucket with completions and spirals, and
// picks out the best and toughest stretches.
func GetMoodTimeline(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	timeRange := dates.RangeMonth
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		timeRange = tr
	}

	granularity := dates.GranularityDaily
	if v, ok := params["granularity"]; ok {
		g, err := validate.Granularity(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		granularity = g
	}

	win := dates.Window(now, timeRange)
	samples, err := tc.Store.ListMoodSamples(ctx, tc.UserID, win.Start, win.End)
	if err != nil {
		return failure(start, "query mood samples: %v", err)
	}

	payload := insight.MoodTimeline{
		Timeline:  []insight.MoodBucket{},
		BestDays:  []insight.MoodBucket{},
		ToughDays: []insight.MoodBucket{},
	}
	if len(samples) == 0 {
		// No readings is a successful answer, not an error.
		return success(start, insight.FormatMoodTimeline(payload))
	}

	type agg struct {
		stress, anxiety       float64
		samples               int
		completions, spirals  int
	}
	buckets := map[string]*agg{}
	var order []string
	for _, s := range samples {
		key := dates.BucketKey(s.RecordedAt, granularity)
		b := buckets[key]
		if b == nil {
			b = &agg{}
			buckets[key] = b
			order = append(order, key)
		}
		b.stress += s.Stress
		b.anxiety += s.Anxiety
		b.samples++
	}

	logs, err := tc.Store.ListCompletions(ctx, tc.UserID, store.CompletionFilter{From: &win.Start, To: &win.End})
	if err != nil {
		return failure(start, "query completions: %v", err)
	}
	for _, cl := range logs {
		if b := buckets[dates.BucketKey(cl.CompletedAt, granularity)]; b != nil {
			b.completions++
		}
	}

	spiral := true
	spirals, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		IsWorrySpiral: &spiral,
		CreatedAfter:  &win.Start,
		CreatedBefore: &win.End,
	})
	if err != nil {
		return failure(start, "query worry spirals: %v", err)
	}
	for _, it := range spirals {
		if b := buckets[dates.BucketKey(it.CreatedAt, granularity)]; b != nil {
			b.spirals++
		}
	}

	sort.Strings(order)
	var moodSum float64
	for _, key := range order {
		b := buckets[key]
		avgStress := b.stress / float64(b.samples)
		avgAnxiety := b.anxiety / float64(b.samples)
		payload.Timeline = append(payload.Timeline, insight.MoodBucket{
			Bucket:      key,
			MoodScore:   moodScore(avgStress, avgAnxiety),
			AvgStress:   insight.Round1(avgStress),
			AvgAnxiety:  insight.Round1(avgAnxiety),
			Samples:     b.samples,
			Completions: b.completions,
			Spirals:     b.spirals,
		})
		moodSum += moodScore(avgStress, avgAnxiety)
	}
	payload.AverageMood = insight.Round1(moodSum / float64(len(payload.Timeline)))

	byScore := make([]insight.MoodBucket, len(payload.Timeline))
	copy(byScore, payload.Timeline)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].MoodScore > byScore[j].MoodScore })
	payload.BestDays = topN(byScore, 3)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].MoodScore < byScore[j].MoodScore })
	payload.ToughDays = topN(byScore, 3)

	return success(start, insight.FormatMoodTimeline(payload))
}

// moodScore maps stress and anxiety (both 0–10, higher is worse) onto a
// 0–10 mood score where higher is better.
func moodScore(stress, anxiety float64) float64 {
	score := 10 - (stress+anxiety)/2
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return insight.Round1(score)
}

func topN(buckets []insight.MoodBucket, n int) []insight.MoodBucket {
	if len(buckets) < n {
		n = len(buckets)
	}
	out := make([]insight.MoodBucket, n)
	copy(out, buckets[:n])
	return out
}

// IdentifyEmotionalTriggers groups emotionally heavy items by category
// and tag to show where the weight concentrates.
func IdentifyEmotionalTriggers(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	minWeight := 50.0
	if v, ok := params["min_emotional_weight"]; ok {
		n, err := validate.Number(v, "min_emotional_weight", 0, 100)
		if err != nil {
			return failure(start, "%v", err)
		}
		minWeight = n
	}

	timeRange := dates.RangeMonth
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		timeRange = tr
	}

	win := dates.Window(now, timeRange)
	items, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		MinEmotionalWeight: &minWeight,
		CreatedAfter:       &win.Start,
		CreatedBefore:      &win.End,
	})
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	payload := insight.EmotionalTriggers{
		Threshold:     minWeight,
		TotalMatching: len(items),
		ByCategory:    []insight.TriggerGroup{},
		ByTag:         []insight.TriggerGroup{},
	}

	type triggerAgg struct {
		count   int
		weight  float64
		spirals int
	}
	byCategory := map[string]*triggerAgg{}
	byTag := map[string]*triggerAgg{}
	observe := func(m map[string]*triggerAgg, key string, it store.Item) {
		agg := m[key]
		if agg == nil {
			agg = &triggerAgg{}
			m[key] = agg
		}
		agg.count++
		if it.EmotionalWeightScore != nil {
			agg.weight += *it.EmotionalWeightScore
		}
		if it.IsWorrySpiral {
			agg.spirals++
		}
	}
	for _, it := range items {
		observe(byCategory, it.Category.String(), it)
		for _, tag := range it.CustomTags {
			if tag = strings.TrimSpace(tag); tag != "" {
				observe(byTag, strings.ToLower(tag), it)
			}
		}
	}

	groups := func(m map[string]*triggerAgg) []insight.TriggerGroup {
		out := make([]insight.TriggerGroup, 0, len(m))
		for name, agg := range m {
			out = append(out, insight.TriggerGroup{
				Name:        name,
				Count:       agg.count,
				AvgWeight:   insight.Round1(agg.weight / float64(agg.count)),
				SpiralCount: agg.spirals,
				SpiralRate:  insight.Percent(agg.spirals, agg.count),
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].AvgWeight != out[j].AvgWeight {
				return out[i].AvgWeight > out[j].AvgWeight
			}
			return out[i].Name < out[j].Name
		})
		return out
	}
	payload.ByCategory = groups(byCategory)
	payload.ByTag = groups(byTag)
	if len(payload.ByTag) > 10 {
		payload.ByTag = payload.ByTag[:10]
	}

	return success(start, insight.FormatEmotionalTriggers(payload))
}
