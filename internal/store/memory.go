package store

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
type MemoryStore struct {
	mu sync.RWMutex

	properties   map[int64]*Property
	polygons     map[int64]*Polygon
	applications map[int64]*Application
	stations     []Station

	nextPropertyID    int64
	nextPolygonID     int64
	nextApplicationID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties:        make(map[int64]*Property),
		polygons:          make(map[int64]*Polygon),
		applications:      make(map[int64]*Application),
		nextPropertyID:    1,
		nextPolygonID:     1,
		nextApplicationID: 1,
	}
}

// SeedStations loads the reference station list.
func (s *MemoryStore) SeedStations(stations []Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = append(s.stations, stations...)
}

func (s *MemoryStore) CreateProperty(_ context.Context, p *Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextPropertyID
	s.nextPropertyID++
	cp := *p
	s.properties[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProperty(_ context.Context, id int64) (*Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListLocatedProperties(_ context.Context) ([]Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Property
	for _, p := range s.properties {
		if p.Lat != nil && p.Lon != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetPGRApplied(_ context.Context, propertyID int64, model, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return ErrNotFound
	}
	d := date
	if model == "gdd0" {
		p.PgrLastGdd0 = &d
	} else {
		p.PgrLastGdd10 = &d
	}
	return nil
}

func (s *MemoryStore) AddPolygon(_ context.Context, p *Polygon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[p.PropertyID]; !ok {
		return ErrNotFound
	}
	p.ID = s.nextPolygonID
	s.nextPolygonID++
	cp := *p
	s.polygons[p.ID] = &cp
	return nil
}

func (s *MemoryStore) ListPolygons(_ context.Context, propertyID int64) ([]Polygon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.properties[propertyID]; !ok {
		return nil, ErrNotFound
	}
	var out []Polygon
	for _, p := range s.polygons {
		if p.PropertyID == propertyID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdatePolygon(_ context.Context, propertyID, polygonID int64, patch PolygonPatch) (*Polygon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polygons[polygonID]
	if !ok || p.PropertyID != propertyID {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.GeoJSON != nil {
		p.GeoJSON = patch.GeoJSON
	}
	if patch.AreaSqft != nil {
		p.AreaSqft = patch.AreaSqft
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) DeletePolygon(_ context.Context, propertyID, polygonID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polygons[polygonID]
	if !ok || p.PropertyID != propertyID {
		return ErrNotFound
	}
	delete(s.polygons, polygonID)
	return nil
}

func (s *MemoryStore) InsertApplications(_ context.Context, apps []Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range apps {
		apps[i].ID = s.nextApplicationID
		s.nextApplicationID++
		cp := apps[i]
		s.applications[cp.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) ListApplications(_ context.Context, propertyID int64) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Application
	for _, a := range s.applications {
		if a.PropertyID == propertyID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetApplication(_ context.Context, id int64) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetApplicationBatch(_ context.Context, batchID string) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Application
	for _, a := range s.applications {
		if a.BatchID == batchID {
			out = append(out, *a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) NearestStation(_ context.Context, lat, lon float64) (*Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Station
	bestDist := math.MaxFloat64
	for i := range s.stations {
		st := &s.stations[i]
		if !st.HasSoilTemp {
			continue
		}
		d := haversineMiles(lat, lon, st.Lat, st.Lon)
		if d < bestDist {
			bestDist = d
			best = st
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

const earthRadiusMiles = 3958.8

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}
