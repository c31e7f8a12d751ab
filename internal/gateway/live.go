package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/al-bashkir/stable-portal/internal/upstream"
)

// lookupTimeout bounds a secondary horse-name lookup so that it cannot
// hold up the primary payload for the full upstream timeout.
const lookupTimeout = 5 * time.Second

// Live serves the data API from the upstream Data API.
type Live struct {
	client *upstream.Client
	opts   Options
	logger *slog.Logger

	// horses deduplicates concurrent lookups of the same horse for the same caller
	horses singleflight.Group
}

// NewLive creates the upstream-backed gateway.
func NewLive(client *upstream.Client, opts Options, logger *slog.Logger) *Live {
	return &Live{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Stables returns the stables visible to the user as the API sends them.
func (l *Live) Stables(ctx context.Context, token string) (any, error) {
	var out any
	if err := l.client.Get(ctx, token, upstream.Path("stables"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Horses fetches the horses of a stable and annotates their risk level.
func (l *Live) Horses(ctx context.Context, token, stableID string) ([]Record, error) {
	var horses []Record
	if err := l.client.Get(ctx, token, upstream.Path("horses", stableID), &horses); err != nil {
		return nil, err
	}
	return AnnotateRisk(horses, l.opts.RiskLabels), nil
}

// UpdateHorse sends body to the API with its id forced to horseID.
func (l *Live) UpdateHorse(ctx context.Context, token, horseID string, body Record) (any, error) {
	update := clone(body)
	update["id"] = horseID

	var out any
	if err := l.client.Put(ctx, token, upstream.Path("horses", horseID), update, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sessions fetches the recordings and horses of a stable in parallel and
// joins horse names onto the recordings.
func (l *Live) Sessions(ctx context.Context, token, stableID, days string) ([]Record, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}

	var recordings, horses []Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.client.Get(gctx, token, upstream.Path("sessions", stableID, days), &recordings)
	})
	g.Go(func() error {
		return l.client.Get(gctx, token, upstream.Path("horses", stableID), &horses)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return EnrichRecordings(recordings, horses), nil
}

// UnassignedSessions returns the recordings of a stable with no horse.
func (l *Live) UnassignedSessions(ctx context.Context, token, stableID string) (any, error) {
	var out any
	if err := l.client.Get(ctx, token, upstream.Path("sessions", "unassigned", stableID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignSession links a recording to a horse.
func (l *Live) AssignSession(ctx context.Context, token, stableID, recordingID, horseID string) (any, error) {
	var out any
	path := upstream.Path("sessions", "assign", stableID, recordingID, horseID)
	if err := l.client.Post(ctx, token, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Performance fetches statistics and session metadata in parallel. A failed
// metadata fetch is absorbed and the statistics are returned alone.
func (l *Live) Performance(ctx context.Context, token, recordingID string) (Record, error) {
	var stats, meta Record
	var metaErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.client.Get(gctx, token, upstream.Path("performance", recordingID), &stats)
	})
	g.Go(func() error {
		metaErr = l.client.Get(gctx, token, upstream.Path("session", recordingID), &meta)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if metaErr != nil {
		l.logger.Warn("session metadata unavailable, returning statistics only", "error", metaErr)
		meta = nil
	} else if meta == nil {
		meta = Record{}
	}

	return composePerformance(stats, meta, l.lookup(ctx, token)), nil
}

// Session fetches one recording and resolves its horse name if needed.
func (l *Live) Session(ctx context.Context, token, recordingID string) (Record, error) {
	var rec Record
	if err := l.client.Get(ctx, token, upstream.Path("session", recordingID), &rec); err != nil {
		return nil, err
	}
	return withHorseName(rec, l.lookup(ctx, token), ""), nil
}

// Dashboard fetches horses and the last week of sessions in parallel and
// summarizes them.
func (l *Live) Dashboard(ctx context.Context, token, stableID string) (*Dashboard, error) {
	var horses, sessions []Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.client.Get(gctx, token, upstream.Path("horses", stableID), &horses)
	})
	g.Go(func() error {
		return l.client.Get(gctx, token, upstream.Path("sessions", stableID, dashboardDays), &sessions)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildDashboard(horses, sessions, l.opts), nil
}

// StatusOptions returns the horse status values offered by the API.
func (l *Live) StatusOptions(ctx context.Context, token string) (any, error) {
	var out any
	if err := l.client.Get(ctx, token, upstream.Path("dropdowns", "status"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Passthrough forwards a GET under /api, rejecting paths that leave it.
func (l *Live) Passthrough(ctx context.Context, token, path string, query url.Values) (any, error) {
	p, err := upstream.PassthroughPath(path, query)
	if err != nil {
		return nil, upstream.BadRequest("Invalid API path")
	}

	var out any
	if err := l.client.Get(ctx, token, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// lookup resolves horse names through the upstream horse endpoint.
// A shared lookup runs on its own timeout and outlives a cancelled caller.
func (l *Live) lookup(ctx context.Context, token string) horseLookup {
	return func(horseID string) (string, error) {
		v, err, _ := l.horses.Do(token+"\x00"+horseID, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
			defer cancel()

			var horse Record
			if err := l.client.Get(ctx, token, upstream.Path("horse", horseID), &horse); err != nil {
				l.logger.Debug("horse lookup failed", "error", err)
				return "", err
			}

			name, _ := horse["name"].(string)
			if name == "" {
				return "", errors.New("horse has no name")
			}
			return name, nil
		})
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}
}

// validateDays accepts "all" or a positive whole number of days.
func validateDays(days string) error {
	if days == "all" {
		return nil
	}
	if n, err := strconv.Atoi(days); err != nil || n <= 0 {
		return upstream.BadRequest(`days must be "all" or a positive integer`)
	}
	return nil
}
