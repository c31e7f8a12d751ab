package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/al-bashkir/stable-portal/internal/upstream"
)

const demoStableID = "demo-stable"

// demoEpoch is the fixed start of the demo week (2024-06-03T06:00:00Z).
const demoEpoch int64 = 1717394400000

const (
	minute = int64(60 * 1000)
	day    = 24 * 60 * minute
)

// demoData is the raw dataset shaped like the upstream responses.
type demoData struct {
	stables     []Record
	horses      []Record
	recordings  []Record
	performance map[string]Record
	statuses    []string
}

func newDemoData() *demoData {
	horse := func(id, name, status, traffic, breed string, age int) Record {
		return Record{
			"id":           id,
			"name":         name,
			"stableId":     demoStableID,
			"status":       status,
			"trafficLight": traffic,
			"breed":        breed,
			"age":          age,
		}
	}

	recording := func(id string, horseID any, start int64, stop any, traffic string) Record {
		return Record{
			"id":           id,
			"stableId":     demoStableID,
			"horseId":      horseID,
			"startTime":    start,
			"stopTime":     stop,
			"trafficLight": traffic,
		}
	}

	stats := func(recordingID string, distance, avgSpeed, maxSpeed, stride float64, maxHR int) Record {
		return Record{
			"recordingId":  recordingID,
			"distance":     distance,
			"avgSpeed":     avgSpeed,
			"maxSpeed":     maxSpeed,
			"strideLength": stride,
			"maxHeartRate": maxHR,
		}
	}

	return &demoData{
		stables: []Record{
			{"id": demoStableID, "name": "Demo Stables", "location": "Newmarket"},
		},
		horses: []Record{
			horse("demo-horse-1", "Thunder", "Active", "green", "Thoroughbred", 6),
			horse("demo-horse-2", "Lightning", "Active", "yellow", "Arabian", 8),
			horse("demo-horse-3", "Storm", "Injured", "red", "Hanoverian", 11),
			horse("demo-horse-4", "Breeze", "Resting", "green", "Connemara", 5),
		},
		recordings: []Record{
			recording("demo-rec-1", "demo-horse-1", demoEpoch, demoEpoch+45*minute, "green"),
			recording("demo-rec-2", "demo-horse-2", demoEpoch+day, demoEpoch+day+32*minute, "yellow"),
			recording("demo-rec-3", "demo-horse-3", demoEpoch+2*day, demoEpoch+2*day+12*minute, "red"),
			recording("demo-rec-4", nil, demoEpoch+3*day, demoEpoch+3*day+28*minute, "green"),
			recording("demo-rec-5", "demo-horse-1", demoEpoch+4*day, demoEpoch+4*day+51*minute, "green"),
			recording("demo-rec-6", "demo-horse-4", demoEpoch+5*day, nil, "green"),
		},
		performance: map[string]Record{
			"demo-rec-1": stats("demo-rec-1", 8200, 18.2, 41.5, 6.1, 188),
			"demo-rec-2": stats("demo-rec-2", 5400, 16.9, 37.0, 5.8, 196),
			"demo-rec-3": stats("demo-rec-3", 1900, 9.5, 22.3, 4.9, 171),
			"demo-rec-4": stats("demo-rec-4", 4700, 15.1, 33.8, 5.6, 180),
			"demo-rec-5": stats("demo-rec-5", 9100, 18.8, 43.2, 6.2, 192),
			"demo-rec-6": stats("demo-rec-6", 3000, 12.4, 28.0, 5.3, 165),
		},
		statuses: []string{"Active", "Resting", "Injured", "Retired"},
	}
}

// Demo serves a fixed dataset without contacting any upstream service.
// Every stable ID resolves to the single demo stable.
type Demo struct {
	data *demoData
	opts Options
}

// NewDemo creates the demo gateway.
func NewDemo(opts Options) *Demo {
	return &Demo{
		data: newDemoData(),
		opts: opts,
	}
}

// Stables returns the fixed demo stables.
func (d *Demo) Stables(context.Context, string) (any, error) {
	return cloneAll(d.data.stables), nil
}

// Horses returns the demo horses for any stable.
func (d *Demo) Horses(_ context.Context, _, _ string) ([]Record, error) {
	return AnnotateRisk(d.data.horses, d.opts.RiskLabels), nil
}

// UpdateHorse echoes the merged horse without storing it.
func (d *Demo) UpdateHorse(_ context.Context, _, horseID string, body Record) (any, error) {
	horse := d.findHorse(horseID)
	if horse == nil {
		return nil, notFound("Horse not found")
	}

	out := clone(horse)
	for k, v := range body {
		out[k] = v
	}
	out["id"] = horseID
	return out, nil
}

// Sessions returns all demo recordings with horse names joined on.
func (d *Demo) Sessions(_ context.Context, _, _, days string) ([]Record, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}
	return EnrichRecordings(d.data.recordings, d.data.horses), nil
}

// UnassignedSessions returns the demo recordings with no horse.
func (d *Demo) UnassignedSessions(context.Context, string, string) (any, error) {
	out := make([]Record, 0)
	for _, r := range d.data.recordings {
		if idKey(r["horseId"]) == "" {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

// AssignSession acknowledges the assignment without storing it.
func (d *Demo) AssignSession(_ context.Context, _, stableID, recordingID, horseID string) (any, error) {
	if d.findRecording(recordingID) == nil {
		return nil, notFound("Session not found")
	}
	if d.findHorse(horseID) == nil {
		return nil, notFound("Horse not found")
	}
	return Record{
		"success":     true,
		"stableId":    stableID,
		"recordingId": recordingID,
		"horseId":     horseID,
	}, nil
}

// Performance returns the demo statistics of a recording.
func (d *Demo) Performance(_ context.Context, _, recordingID string) (Record, error) {
	stats, ok := d.data.performance[recordingID]
	if !ok {
		return nil, notFound("Performance data not found")
	}
	return composePerformance(stats, d.findRecording(recordingID), d.lookup), nil
}

// Session returns one demo recording.
func (d *Demo) Session(_ context.Context, _, recordingID string) (Record, error) {
	rec := d.findRecording(recordingID)
	if rec == nil {
		return nil, notFound("Session not found")
	}
	return withHorseName(rec, d.lookup, ""), nil
}

// Dashboard summarizes the demo data.
func (d *Demo) Dashboard(context.Context, string, string) (*Dashboard, error) {
	return BuildDashboard(d.data.horses, d.data.recordings, d.opts), nil
}

// StatusOptions returns the demo horse status values.
func (d *Demo) StatusOptions(context.Context, string) (any, error) {
	return append([]string(nil), d.data.statuses...), nil
}

// Passthrough returns a placeholder naming the requested path.
func (d *Demo) Passthrough(_ context.Context, _, path string, _ url.Values) (any, error) {
	return Record{
		"message":  "Demo mode - no real API data available",
		"endpoint": path,
	}, nil
}

func (d *Demo) lookup(horseID string) (string, error) {
	horse := d.findHorse(horseID)
	if horse == nil {
		return "", errors.New("horse not found")
	}
	name, _ := horse["name"].(string)
	return name, nil
}

func (d *Demo) findHorse(id string) Record {
	for _, h := range d.data.horses {
		if idKey(h["id"]) == id {
			return h
		}
	}
	return nil
}

func (d *Demo) findRecording(id string) Record {
	for _, r := range d.data.recordings {
		if idKey(r["id"]) == id {
			return r
		}
	}
	return nil
}

func notFound(message string) *upstream.APIError {
	return &upstream.APIError{Status: http.StatusNotFound, Message: message}
}

func cloneAll(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, clone(r))
	}
	return out
}
