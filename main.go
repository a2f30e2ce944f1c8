package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eco-route/algo"
	"eco-route/config"
	"eco-route/data"
	"eco-route/db"
	"eco-route/geocode"
	"eco-route/handler"
	"eco-route/model"
	"eco-route/planner"
	"eco-route/pollution"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := run(); err != nil {
		log.Fatalf("eco-route: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. database: users, and optionally the map
	var (
		gormDB *gorm.DB
		users  db.UserStore
	)
	if cfg.Database.Enabled {
		gormDB, err = db.InitDB(cfg.Database)
		if err != nil {
			return err
		}
		users = db.NewGormUserStore(gormDB)
	} else {
		log.Println("database disabled, accounts are kept in memory")
		users = db.NewMemoryUserStore()
	}

	// 2. road network and gazetteer
	graph, areas, err := loadGraph(ctx, cfg, gormDB)
	if err != nil {
		return err
	}
	log.Printf("graph loaded from %s: %d nodes, %d arcs, %d areas",
		cfg.Graph.Source, graph.NumNodes(), len(graph.Arcs), len(areas))

	// 3. air quality
	sampler, closeCache, err := newSampler(cfg.Sampler, graph, areas)
	if err != nil {
		return err
	}
	defer closeCache()
	if err := sampler.Refresh(ctx); err != nil {
		log.Printf("initial air-quality refresh failed: %v", err)
	}
	go sampler.Run(ctx)

	// 4. planner and HTTP
	geocoder := geocode.New(areas, graph)
	pl, err := planner.New(graph, geocoder, sampler, planner.Config{
		DistanceWeight:  cfg.Planner.DistanceWeight,
		PollutionWeight: cfg.Planner.PollutionWeight,
		Timeout:         cfg.Planner.Timeout,
		Scoring: planner.ScoringConfig{
			HighAQIThreshold: cfg.Scoring.HighAQIThreshold,
			LowAQIThreshold:  cfg.Scoring.LowAQIThreshold,
			MaxFlaggedPoints: cfg.Scoring.MaxFlaggedPoints,
			AQICeiling:       cfg.Scoring.AQICeiling,
			CO2Ceiling:       cfg.Scoring.CO2Ceiling,
			DistanceScaleKm:  cfg.Scoring.DistanceScaleKm,
		},
	})
	if err != nil {
		return err
	}

	h := handler.New(handler.Deps{
		Graph:     graph,
		Areas:     areas,
		Planner:   pl,
		Locations: geocoder,
		Pollution: sampler,
		Users:     users,
		Auth:      handler.NewAuth(cfg.Auth),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.NewRouter(h, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadGraph builds the graph from the configured source. The seed gazetteer
// is used whenever the source carries no areas of its own.
func loadGraph(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (*algo.Graph, []model.Area, error) {
	opts := algo.Options{MaxSnapMeters: cfg.Graph.MaxSnapMeters}

	seed, err := data.Mysore()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Graph.Source {
	case config.GraphSourceDB:
		g, areas, err := db.LoadGraph(gormDB, opts)
		if err != nil {
			return nil, nil, err
		}
		if len(areas) == 0 {
			areas = seed.Areas
		}
		return g, areas, nil

	case config.GraphSourceOSM:
		f, err := os.Open(cfg.Graph.OSMFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open osm file: %w", err)
		}
		defer f.Close()
		g, err := algo.LoadFromOSM(ctx, f, opts)
		if err != nil {
			return nil, nil, err
		}
		return g, seed.Areas, nil

	case config.GraphSourceJSON:
		g, areas, err := algo.LoadFromJSON(cfg.Graph.MapFile, opts)
		if err != nil {
			return nil, nil, err
		}
		if len(areas) == 0 {
			areas = seed.Areas
		}
		return g, areas, nil

	default:
		g, err := algo.BuildGraph(seed, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("build seed graph: %w", err)
		}
		return g, seed.Areas, nil
	}
}

// newSampler picks the HTTP feed when AQI_SOURCE_URL is set and the area
// baselines otherwise. The returned func closes the cache, if any.
func newSampler(cfg config.SamplerConfig, g *algo.Graph, areas []model.Area) (*pollution.Sampler, func(), error) {
	var provider pollution.Provider = pollution.NewStaticProvider(areas)
	if cfg.SourceURL != "" {
		provider = pollution.NewHTTPProvider(cfg.SourceURL, cfg.FetchTimeout)
	}

	var cache *pollution.Cache
	closeCache := func() {}
	if cfg.CachePath != "" {
		c, err := pollution.OpenCache(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		cache = c
		closeCache = func() {
			if err := c.Close(); err != nil {
				log.Printf("close air-quality cache: %v", err)
			}
		}
	}

	sampler := pollution.NewSampler(g, provider, cache, pollution.Config{
		Interval:     cfg.Interval,
		MaxStaleness: cfg.MaxStaleness,
		FetchTimeout: cfg.FetchTimeout,
		NeutralAQI:   cfg.NeutralAQI,
		NeutralCO2:   cfg.NeutralCO2,
		Power:        2,
	})
	log.Printf("air quality from %s provider, refresh every %s", provider.Name(), cfg.Interval)
	return sampler, closeCache, nil
}
