package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

// MemoryStore keeps everything in process memory behind a single mutex.
type MemoryStore struct {
	mu sync.RWMutex

	regions     map[string]domain.Region
	ndvi        map[string][]domain.NDVIObservation
	soil        map[string][]domain.SoilMoistureObservation
	weather     map[string][]domain.WeatherObservation
	assessments map[string]domain.Assessment // keyed region|date
	alerts      []domain.Alert

	nextAssessmentID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		regions:     make(map[string]domain.Region),
		ndvi:        make(map[string][]domain.NDVIObservation),
		soil:        make(map[string][]domain.SoilMoistureObservation),
		weather:     make(map[string][]domain.WeatherObservation),
		assessments: make(map[string]domain.Assessment),
	}
}

func assessmentKey(regionID string, date time.Time) string {
	return regionID + "|" + domain.DateOf(date).Format(time.DateOnly)
}

func (s *MemoryStore) UpsertRegion(ctx context.Context, region domain.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[region.ID] = region
	return nil
}

func (s *MemoryStore) Regions(ctx context.Context) ([]domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Region(ctx context.Context, id string) (domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[id]
	if !ok {
		return domain.Region{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) InsertNDVI(ctx context.Context, obs ...domain.NDVIObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.ndvi[o.RegionID] = append(s.ndvi[o.RegionID], o)
	}
	for id := range s.ndvi {
		sortByDate(s.ndvi[id], func(o domain.NDVIObservation) time.Time { return o.Date })
	}
	return nil
}

func (s *MemoryStore) InsertSoilMoisture(ctx context.Context, obs ...domain.SoilMoistureObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.soil[o.RegionID] = append(s.soil[o.RegionID], o)
	}
	for id := range s.soil {
		sortByDate(s.soil[id], func(o domain.SoilMoistureObservation) time.Time { return o.Date })
	}
	return nil
}

func (s *MemoryStore) InsertWeather(ctx context.Context, obs ...domain.WeatherObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.weather[o.RegionID] = append(s.weather[o.RegionID], o)
	}
	for id := range s.weather {
		sortByDate(s.weather[id], func(o domain.WeatherObservation) time.Time { return o.Date })
	}
	return nil
}

func (s *MemoryStore) NDVIRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.NDVIObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeByDate(s.ndvi[regionID], from, to, func(o domain.NDVIObservation) time.Time { return o.Date }), nil
}

func (s *MemoryStore) SoilMoistureRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.SoilMoistureObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeByDate(s.soil[regionID], from, to, func(o domain.SoilMoistureObservation) time.Time { return o.Date }), nil
}

func (s *MemoryStore) WeatherRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.WeatherObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rangeByDate(s.weather[regionID], from, to, func(o domain.WeatherObservation) time.Time { return o.Date }), nil
}

// UpsertAssessment creates or replaces the row for (region, date). A new
// row gets the next ID; a replaced row keeps its original ID and creation
// time so alert dedup references stay valid.
func (s *MemoryStore) UpsertAssessment(ctx context.Context, a *domain.Assessment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assessmentKey(a.RegionID, a.Date)
	if existing, ok := s.assessments[key]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		s.nextAssessmentID++
		a.ID = s.nextAssessmentID
		a.CreatedAt = domain.Now()
	}
	a.Date = domain.DateOf(a.Date)
	s.assessments[key] = *a
	return nil
}

func (s *MemoryStore) AssessmentOn(ctx context.Context, regionID string, date time.Time) (domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[assessmentKey(regionID, date)]
	if !ok {
		return domain.Assessment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) AssessmentsRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assessment
	for _, a := range s.assessments {
		if a.RegionID == regionID && !a.Date.Before(domain.DateOf(from)) && !a.Date.After(domain.DateOf(to)) {
			out = append(out, a)
		}
	}
	sortByDate(out, func(a domain.Assessment) time.Time { return a.Date })
	return out, nil
}

// RecentAboveScore returns every assessment on or after since whose risk
// score meets minScore, across all regions.
func (s *MemoryStore) RecentAboveScore(ctx context.Context, since time.Time, minScore float64) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := domain.DateOf(since)
	var out []domain.Assessment
	for _, a := range s.assessments {
		if !a.Date.Before(cutoff) && a.RiskScore >= minScore {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegionID != out[j].RegionID {
			return out[i].RegionID < out[j].RegionID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *MemoryStore) InsertAlert(ctx context.Context, alert domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *MemoryStore) HasActiveAlert(ctx context.Context, regionID string, assessmentID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts {
		if a.Active && a.RegionID == regionID && a.AssessmentID == assessmentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Alerts(ctx context.Context, activeOnly bool) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if !activeOnly || a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func sortByDate[T any](s []T, date func(T) time.Time) {
	sort.Slice(s, func(i, j int) bool { return date(s[i]).Before(date(s[j])) })
}

func rangeByDate[T any](s []T, from, to time.Time, date func(T) time.Time) []T {
	var out []T
	for _, item := range s {
		d := date(item)
		if !d.Before(from) && !d.After(to) {
			out = append(out, item)
		}
	}
	return out
}
