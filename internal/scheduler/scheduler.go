package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/bermudabuddy/lawn-api/internal/store"
	"github.com/bermudabuddy/lawn-api/internal/weather"
)

const warmHours = 24

// Scheduler periodically pre-warms the hourly forecast cache for every saved
// property with coordinates, so interactive spray-window requests hit the
// cache instead of the upstream.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    *weather.Service
	properties store.PropertyStore
	interval   time.Duration
}

// New creates a Scheduler.
func New(properties store.PropertyStore, interval time.Duration, service *weather.Service) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		service:    service,
		properties: properties,
		interval:   interval,
	}
}

// Start schedules the periodic warm job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.warmAll)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) warmAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	props, err := s.properties.ListLocatedProperties(ctx)
	if err != nil {
		log.Printf("scheduler: listing properties failed: %v", err)
		return
	}
	if len(props) == 0 {
		return
	}

	log.Printf("scheduler: warming forecasts for %d properties", len(props))

	var wg sync.WaitGroup
	for _, p := range props {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			// The provider caches per coordinates and window; fetching is
			// all the warming there is to do.
			s.service.HourlyRows(ctx, *p.Lat, *p.Lon, warmHours, weather.SourceOpenMeteo)
		}()
	}
	wg.Wait()
}
