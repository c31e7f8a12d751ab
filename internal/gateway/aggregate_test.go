package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLabels = RiskLabels{
	Green:   "Low Risk",
	Yellow:  "Medium Risk",
	Red:     "High Risk",
	Default: "Unknown Risk",
}

func TestRiskLabels(t *testing.T) {
	tests := map[string]string{
		"green":   "Low Risk",
		"GREEN":   "Low Risk",
		"YELLOW":  "Medium Risk",
		" Red ":   "High Risk",
		"purple":  "Unknown Risk",
		"":        "Unknown Risk",
		"amber":   "Unknown Risk",
		"yellow ": "Medium Risk",
	}

	for token, want := range tests {
		assert.Equal(t, want, testLabels.Label(token), "token %q", token)
	}
}

func TestEnrichRecordings(t *testing.T) {
	recordings := []Record{
		{"id": "r1", "horseId": "h1"},
		{"id": "r2", "horseId": nil},
		{"id": "r3"},
		{"id": "r4", "horseId": "h-missing"},
		{"id": "r5", "horseId": json.Number("7")},
	}
	horses := []Record{
		{"id": "h1", "name": "Thunder"},
		{"id": json.Number("7"), "name": "Seven"},
		{"name": "No ID"},
	}

	got := EnrichRecordings(recordings, horses)

	require.Len(t, got, 5)
	assert.Equal(t, Record{"id": "r1", "horseId": "h1", "horseName": "Thunder"}, got[0])
	assert.Equal(t, Record{"id": "r2", "horseId": nil, "horseName": nil}, got[1])
	assert.Equal(t, Record{"id": "r3", "horseName": nil}, got[2])
	assert.Nil(t, got[3]["horseName"])
	assert.Equal(t, "Seven", got[4]["horseName"])

	_, touched := recordings[0]["horseName"]
	assert.False(t, touched, "input records must not be modified")
}

func TestEnrichRecordings_Empty(t *testing.T) {
	got := EnrichRecordings(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDurationMinutes(t *testing.T) {
	const start = int64(1717394400000)

	tests := []struct {
		name  string
		start any
		stop  any
		want  int
	}{
		{name: "ninety seconds", start: start, stop: start + 90000, want: 1},
		{name: "no stop", start: start, stop: nil, want: 0},
		{name: "no start", start: nil, stop: start, want: 0},
		{name: "exact minutes", start: start, stop: start + 45*60000, want: 45},
		{name: "json numbers", start: json.Number("1000"), stop: json.Number("181000"), want: 3},
		{name: "float64", start: 0.0, stop: 119999.0, want: 1},
		{name: "rfc3339", start: "2024-06-03T06:00:00Z", stop: "2024-06-03T06:30:59Z", want: 30},
		{name: "numeric strings", start: "0", stop: "60000", want: 1},
		{name: "stop before start", start: start, stop: start - 60000, want: 0},
		{name: "garbage", start: "yesterday", stop: start, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationMinutes(tt.start, tt.stop))
		})
	}
}

func TestBuildDashboard(t *testing.T) {
	const t0 = int64(1717394400000)

	horses := []Record{
		{"id": "h1", "name": "Thunder", "status": "Active", "trafficLight": "green"},
		{"id": "h2", "name": "Lightning", "status": "Active", "traffic": "YELLOW"},
		{"id": "h3", "name": "Storm", "status": "active", "trafficLight": "red"},
		{"id": "h4", "name": "Breeze", "status": "Resting", "trafficLight": "red"},
		{"id": "h5", "name": "Mist", "status": "Resting"},
	}

	var sessions []Record
	for i := 0; i < 7; i++ {
		sessions = append(sessions, Record{
			"id":        "s" + string(rune('0'+i)),
			"horseId":   "h1",
			"startTime": t0 + int64(i)*3600000,
			"stopTime":  t0 + int64(i)*3600000 + int64(i)*60000 + 30000,
		})
	}
	sessions = append(sessions, Record{"id": "open", "horseId": "h9", "startTime": t0 + 100*3600000})
	sessions = append(sessions, Record{"id": "undated", "horseId": "h2"})

	d := BuildDashboard(horses, sessions, Options{ActiveStatus: "Active", RiskLabels: testLabels})

	assert.Equal(t, 5, d.TotalHorses)
	assert.Equal(t, 2, d.ActiveHorses, "status match is case-sensitive")
	assert.Equal(t, InjuryAlerts{High: 2, Medium: 1, Low: 1}, d.InjuryAlerts)

	require.Len(t, d.RecentSessions, 5)

	ids := make([]any, 0, 5)
	for _, s := range d.RecentSessions {
		ids = append(ids, s["id"])
	}
	assert.Equal(t, []any{"open", "s6", "s5", "s4", "s3"}, ids)

	open := d.RecentSessions[0]
	assert.Equal(t, 0, open["duration"])
	assert.Nil(t, open["horseName"])
	assert.Equal(t, "Unknown Risk", open["riskLabel"])

	assert.Equal(t, 6, d.RecentSessions[1]["duration"])
	assert.Equal(t, "Thunder", d.RecentSessions[1]["horseName"])
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, nil, Options{ActiveStatus: "Active", RiskLabels: testLabels})

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"totalHorses": 0,
		"activeHorses": 0,
		"injuryAlerts": {"high": 0, "medium": 0, "low": 0},
		"recentSessions": []
	}`, string(data))
}

func TestWithHorseName(t *testing.T) {
	lookup := func(id string) (string, error) {
		if id == "h1" {
			return "Thunder", nil
		}
		return "", assert.AnError
	}

	tests := []struct {
		name    string
		rec     Record
		missing string
		want    any
	}{
		{name: "resolved", rec: Record{"horseId": "h1"}, want: "Thunder"},
		{name: "already named", rec: Record{"horseId": "h2", "horseName": "Kept"}, want: "Kept"},
		{name: "lookup fails", rec: Record{"horseId": "h2"}, want: "Unknown"},
		{name: "no horse", rec: Record{"id": "r1"}, want: nil},
		{name: "no horse with sentinel", rec: Record{"id": "r1"}, missing: "Unknown Horse", want: "Unknown Horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withHorseName(tt.rec, lookup, tt.missing)
			assert.Equal(t, tt.want, got["horseName"])
		})
	}
}

func TestComposePerformance(t *testing.T) {
	lookup := func(string) (string, error) { return "Thunder", nil }
	stats := Record{"recordingId": "r1", "maxSpeed": 40.1}

	alone := composePerformance(stats, nil, lookup)
	assert.Equal(t, stats, alone)

	full := composePerformance(stats, Record{"id": "r1", "horseId": "h1"}, lookup)
	require.Contains(t, full, "session")
	assert.Equal(t, Record{"id": "r1", "horseId": "h1", "horseName": "Thunder"}, full["session"])
	assert.NotContains(t, stats, "session", "statistics must not be modified")
}
