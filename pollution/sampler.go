package pollution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"eco-route/algo"
)

// ErrSamplerUnavailable means the provider could not be reached. It is soft:
// the sampler keeps serving a last-known or neutral snapshot.
var ErrSamplerUnavailable = errors.New("air-quality sampler unavailable")

// Config controls polling and fallback behaviour.
type Config struct {
	Interval     time.Duration // how often Run refreshes
	MaxStaleness time.Duration // how long last-known readings stay usable
	FetchTimeout time.Duration
	NeutralAQI   float64
	NeutralCO2   float64
	Power        float64 // inverse-distance weighting exponent
}

// DefaultConfig returns the sampler defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     10 * time.Minute,
		MaxStaleness: 2 * time.Hour,
		FetchTimeout: 10 * time.Second,
		NeutralAQI:   60,
		NeutralCO2:   140,
		Power:        2,
	}
}

// Sampler owns the current pollution snapshot for one graph. Readers call
// Current and get an immutable snapshot; Refresh swaps in a new one
// atomically.
type Sampler struct {
	graph    *algo.Graph
	provider Provider
	cache    *Cache
	cfg      Config

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	mu      sync.Mutex // serializes Refresh
	now     func() time.Time
}

// NewSampler creates a sampler that starts with a neutral snapshot, so
// Current never returns nil. cache may be nil.
func NewSampler(g *algo.Graph, provider Provider, cache *Cache, cfg Config) *Sampler {
	if cfg.Power <= 0 {
		cfg.Power = 2
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	s := &Sampler{
		graph:    g,
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
	}
	s.publish(neutralSnapshot(g, s.neutral()), time.Time{})
	return s
}

// Current returns the snapshot in effect.
func (s *Sampler) Current() *Snapshot {
	return s.current.Load()
}

func (s *Sampler) neutral() Sample {
	return Sample{AQI: s.cfg.NeutralAQI, CO2: s.cfg.NeutralCO2}
}

func (s *Sampler) publish(snap *Snapshot, fetchedAt time.Time) {
	snap.Version = s.version.Add(1)
	if fetchedAt.IsZero() {
		fetchedAt = s.now()
	}
	snap.FetchedAt = fetchedAt
	s.current.Store(snap)
}

// Refresh fetches new readings and publishes a snapshot built from them.
// On failure it falls back, in order, to the current snapshot if it is still
// within MaxStaleness, to cached readings within MaxStaleness, and finally to
// neutral samples. The returned error wraps ErrSamplerUnavailable; the
// sampler always has a usable snapshot afterwards.
func (s *Sampler) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	readings, err := s.provider.Fetch(fetchCtx)
	cancel()
	if err == nil && len(readings) == 0 {
		err = errors.New("provider returned no readings")
	}

	if err == nil {
		now := s.now()
		snap := newSnapshot(s.graph, readings, s.cfg.Power)
		snap.Source = SourceLive
		s.publish(snap, now)
		if s.cache != nil {
			if cerr := s.cache.Save(ctx, readings, now); cerr != nil {
				log.Printf("pollution: failed to cache readings: %v", cerr)
			}
		}
		log.Printf("pollution: snapshot v%d from %s (%d readings)", snap.Version, s.provider.Name(), len(readings))
		return nil
	}

	err = fmt.Errorf("%w: %s: %v", ErrSamplerUnavailable, s.provider.Name(), err)
	s.fallback(ctx)
	return err
}

func (s *Sampler) fallback(ctx context.Context) {
	now := s.now()

	cur := s.Current()
	if cur.Source != SourceNeutral && cur.Age(now) <= s.cfg.MaxStaleness {
		log.Printf("pollution: keeping snapshot v%d (%s, age %s)", cur.Version, cur.Source, cur.Age(now).Round(time.Second))
		return
	}

	if s.cache != nil {
		readings, fetchedAt, err := s.cache.Load(ctx)
		switch {
		case err != nil && !errors.Is(err, ErrCacheEmpty):
			log.Printf("pollution: failed to read cache: %v", err)
		case err == nil && now.Sub(fetchedAt) <= s.cfg.MaxStaleness:
			snap := newSnapshot(s.graph, readings, s.cfg.Power)
			snap.Source = SourceCache
			s.publish(snap, fetchedAt)
			log.Printf("pollution: restored snapshot v%d from cache (age %s)", snap.Version, now.Sub(fetchedAt).Round(time.Second))
			return
		}
	}

	if cur.Source != SourceNeutral {
		snap := neutralSnapshot(s.graph, s.neutral())
		s.publish(snap, now)
		log.Printf("pollution: readings older than %s, using neutral snapshot v%d", s.cfg.MaxStaleness, snap.Version)
	}
}

// Run refreshes on every tick until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("pollution refresh: %v", err)
			}
		case <-ctx.Done():
			log.Println("pollution: refresh loop stopped")
			return
		}
	}
}

// Status summarizes the current snapshot for the API.
type Status struct {
	Version    uint64  `json:"version"`
	Source     Source  `json:"source"`
	Provider   string  `json:"provider"`
	FetchedAt  string  `json:"fetched_at"`
	AgeSeconds float64 `json:"age_seconds"`
	Stale      bool    `json:"stale"`
	Readings   int     `json:"readings"`
}

// Status describes the snapshot in effect.
func (s *Sampler) Status() Status {
	now := s.now()
	cur := s.Current()
	return Status{
		Version:    cur.Version,
		Source:     cur.Source,
		Provider:   s.provider.Name(),
		FetchedAt:  cur.FetchedAt.UTC().Format(time.RFC3339),
		AgeSeconds: cur.Age(now).Seconds(),
		Stale:      cur.Source == SourceNeutral || cur.Age(now) > s.cfg.Interval*2,
		Readings:   cur.Readings,
	}
}
