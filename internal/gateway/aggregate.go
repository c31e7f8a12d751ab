package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// recentSessionCount is how many sessions the dashboard lists.
	recentSessionCount = 5

	// dashboardDays is the session window of the dashboard.
	dashboardDays = "7"

	// unknownHorse is used when a horse lookup fails.
	unknownHorse = "Unknown"

	// unassignedHorse is used when a session has no horse at all.
	unassignedHorse = "Unknown Horse"
)

// Dashboard is the stable summary.
type Dashboard struct {
	TotalHorses    int          `json:"totalHorses"`
	ActiveHorses   int          `json:"activeHorses"`
	InjuryAlerts   InjuryAlerts `json:"injuryAlerts"`
	RecentSessions []Record     `json:"recentSessions"`
}

// InjuryAlerts counts horses per traffic light: red is high, yellow is
// medium, green is low.
type InjuryAlerts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// horseLookup resolves a horse ID to its name.
type horseLookup func(horseID string) (string, error)

// EnrichRecordings returns copies of recordings with horseName set from
// horses, or nil when the recording has no horse or the horse is unknown.
func EnrichRecordings(recordings, horses []Record) []Record {
	names := make(map[string]string, len(horses))
	for _, h := range horses {
		id := idKey(h["id"])
		if id == "" {
			continue
		}
		if name, ok := h["name"].(string); ok {
			names[id] = name
		}
	}

	out := make([]Record, 0, len(recordings))
	for _, r := range recordings {
		c := clone(r)
		c["horseName"] = nil
		if id := idKey(r["horseId"]); id != "" {
			if name, ok := names[id]; ok {
				c["horseName"] = name
			}
		}
		out = append(out, c)
	}
	return out
}

// AnnotateRisk returns copies of records with riskLabel set from their
// traffic light.
func AnnotateRisk(records []Record, labels RiskLabels) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		c := clone(r)
		c["riskLabel"] = labels.Label(trafficLight(r))
		out = append(out, c)
	}
	return out
}

// BuildDashboard summarizes horses and the sessions of the dashboard window.
func BuildDashboard(horses, sessions []Record, opts Options) *Dashboard {
	d := &Dashboard{
		TotalHorses:    len(horses),
		RecentSessions: make([]Record, 0, recentSessionCount),
	}

	for _, h := range horses {
		if status, _ := h["status"].(string); status == opts.ActiveStatus {
			d.ActiveHorses++
		}

		switch trafficLight(h) {
		case "red":
			d.InjuryAlerts.High++
		case "yellow":
			d.InjuryAlerts.Medium++
		case "green":
			d.InjuryAlerts.Low++
		}
	}

	enriched := EnrichRecordings(sessions, horses)
	sort.SliceStable(enriched, func(i, j int) bool {
		return startMillis(enriched[i]) > startMillis(enriched[j])
	})

	if len(enriched) > recentSessionCount {
		enriched = enriched[:recentSessionCount]
	}
	for _, s := range enriched {
		s["duration"] = DurationMinutes(s["startTime"], s["stopTime"])
		s["riskLabel"] = opts.RiskLabels.Label(trafficLight(s))
		d.RecentSessions = append(d.RecentSessions, s)
	}

	return d
}

// DurationMinutes returns the whole minutes between start and stop, or 0
// when either is missing or unparseable. Timestamps are epoch milliseconds
// or RFC 3339 strings.
func DurationMinutes(start, stop any) int {
	s, ok := toMillis(start)
	if !ok {
		return 0
	}
	e, ok := toMillis(stop)
	if !ok {
		return 0
	}

	d := math.Floor((e - s) / 60000)
	if d < 0 {
		return 0
	}
	return int(d)
}

// withHorseName sets horseName on a session record from lookup when it
// references a horse without a resolved name. missing is used when the
// record has no horse at all; an empty missing leaves horseName as is,
// defaulting to nil.
func withHorseName(rec Record, lookup horseLookup, missing string) Record {
	c := clone(rec)

	if name, _ := c["horseName"].(string); name != "" {
		return c
	}

	id := idKey(c["horseId"])
	switch {
	case id != "":
		name, err := lookup(id)
		if err != nil || name == "" {
			name = unknownHorse
		}
		c["horseName"] = name
	case missing != "":
		c["horseName"] = missing
	default:
		if _, ok := c["horseName"]; !ok {
			c["horseName"] = nil
		}
	}

	return c
}

// composePerformance merges statistics with the session metadata under
// "session". Without metadata the statistics are returned alone.
func composePerformance(stats, meta Record, lookup horseLookup) Record {
	out := clone(stats)
	if meta == nil {
		return out
	}
	out["session"] = withHorseName(meta, lookup, unassignedHorse)
	return out
}

func trafficLight(r Record) string {
	for _, key := range []string{"trafficLight", "traffic"} {
		if v, ok := r[key].(string); ok && v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

func startMillis(r Record) float64 {
	if v, ok := toMillis(r["startTime"]); ok {
		return v
	}
	return math.Inf(-1)
}

func toMillis(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case time.Time:
		return float64(x.UnixMilli()), true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return float64(t.UnixMilli()), true
		}
	}
	return 0, false
}

// idKey normalizes string and numeric IDs to one lookup key.
func idKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func clone(r Record) Record {
	c := make(Record, len(r)+2)
	for k, v := range r {
		c[k] = v
	}
	return c
}
