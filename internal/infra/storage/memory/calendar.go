package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domaincalendar "staymarket/internal/domain/calendar"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
)

// CalendarStore is the in-memory day ledger. One mutex covers the whole
// check-then-set so concurrent lock attempts on overlapping dates serialize
// and at most one wins.
type CalendarStore struct {
	mu   sync.Mutex
	days map[domainproperty.PropertyID]map[time.Time]domaincalendar.Day
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{days: make(map[domainproperty.PropertyID]map[time.Time]domaincalendar.Day)}
}

func (s *CalendarStore) Days(ctx context.Context, id domainproperty.PropertyID, dr domainrange.DateRange) ([]domaincalendar.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.days[id]
	var out []domaincalendar.Day
	for date, day := range rows {
		if !date.Before(dr.CheckIn) && date.Before(dr.CheckOut) {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LockDays books every date or none. An absent row counts as available.
func (s *CalendarStore) LockDays(ctx context.Context, id domainproperty.PropertyID, dates []time.Time, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.days[id]
	for _, raw := range dates {
		date := domainrange.Day(raw)
		if day, ok := rows[date]; ok && day.Status != domaincalendar.DayAvailable {
			return domaincalendar.ErrDaysConflict
		}
	}
	if rows == nil {
		rows = make(map[time.Time]domaincalendar.Day)
		s.days[id] = rows
	}
	now := time.Now().UTC()
	for _, raw := range dates {
		date := domainrange.Day(raw)
		day := rows[date]
		day.PropertyID = id
		day.Date = date
		day.Status = domaincalendar.DayBooked
		day.ReservationID = reservationID
		day.UpdatedAt = now
		rows[date] = day
	}
	return nil
}

// ReleaseDays reopens booked dates keeping any overrides in place.
func (s *CalendarStore) ReleaseDays(ctx context.Context, id domainproperty.PropertyID, dates []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.days[id]
	if rows == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, raw := range dates {
		date := domainrange.Day(raw)
		day, ok := rows[date]
		if !ok || day.Status != domaincalendar.DayBooked {
			continue
		}
		day.Status = domaincalendar.DayAvailable
		day.ReservationID = ""
		day.UpdatedAt = now
		rows[date] = day
	}
	return nil
}

func (s *CalendarStore) SetOverride(ctx context.Context, id domainproperty.PropertyID, raw time.Time, priceOverride int64, minNightsOverride int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.days[id]
	if rows == nil {
		rows = make(map[time.Time]domaincalendar.Day)
		s.days[id] = rows
	}
	date := domainrange.Day(raw)
	day, ok := rows[date]
	if !ok {
		day = domaincalendar.Day{PropertyID: id, Date: date, Status: domaincalendar.DayAvailable}
	}
	day.PriceOverride = priceOverride
	day.MinNightsOverride = minNightsOverride
	day.UpdatedAt = time.Now().UTC()
	rows[date] = day
	return nil
}

var _ domaincalendar.Store = (*CalendarStore)(nil)
