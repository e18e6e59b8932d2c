package report

import (
	"context"
	"fmt"
	"time"

	"gymops/internal/core"
	"gymops/internal/match"
)

// Appointment kinds the counters report on.
const (
	KindFirstWorkout = "first_workout"
	KindReprogram    = "reprogram"
)

// Counts is an event-count pair for one staff bucket.
type Counts struct {
	Today int `json:"today"`
	MTD   int `json:"mtd"`
}

// AppointmentCounts buckets completed appointments of one kind per canonical
// staff member. Unlike EFT attribution, names that resolve to nobody on the
// roster are counted under "Other" so session totals still reconcile.
func (s *Service) AppointmentCounts(ctx context.Context, kind string, ref time.Time) (map[string]Counts, error) {
	if kind != KindFirstWorkout && kind != KindReprogram {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	appts, err := s.store.CompletedAppointments(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	entries, err := s.store.SalesRoster(ctx, SalesPositionPrefix)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	roster := match.NewRoster(names)

	window := core.NewReportWindow(ref)
	counts := make(map[string]Counts)

	for _, a := range appts {
		if a.EventDate == "" {
			continue
		}
		bucket, _ := s.resolver.Attribute(a.Employee, roster, match.PolicyBucketOther)
		c := counts[bucket]
		if window.InMonth(a.EventDate) {
			c.MTD++
		}
		if window.IsYesterday(a.EventDate) {
			c.Today++
		}
		counts[bucket] = c
	}

	return counts, nil
}
