package pollution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"eco-route/model"

	_ "modernc.org/sqlite"
)

// ErrCacheEmpty is returned by Load when nothing has been saved yet.
var ErrCacheEmpty = errors.New("reading cache is empty")

const cacheSchema = `
CREATE TABLE IF NOT EXISTS aq_readings (
	station     TEXT    NOT NULL,
	lat         REAL    NOT NULL,
	lng         REAL    NOT NULL,
	aqi         REAL    NOT NULL,
	co2         REAL    NOT NULL,
	observed_at INTEGER NOT NULL,
	fetched_at  INTEGER NOT NULL
);`

// Cache keeps the last successful set of readings in a local SQLite file so
// a restart during a provider outage still has recent data.
type Cache struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open reading cache: %w", err)
	}
	// single writer
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping reading cache: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"} {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}
	if _, err := conn.Exec(cacheSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create reading cache schema: %w", err)
	}
	return &Cache{conn: conn}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Save replaces the cached readings.
func (c *Cache) Save(ctx context.Context, readings []model.Reading, fetchedAt time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM aq_readings`); err != nil {
		return fmt.Errorf("clear readings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO aq_readings (station, lat, lng, aqi, co2, observed_at, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		observed := r.ObservedAt
		if observed.IsZero() {
			observed = fetchedAt
		}
		if _, err := stmt.ExecContext(ctx, r.Station, r.Lat, r.Lng, r.AQI, r.CO2, observed.UnixMilli(), fetchedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert reading %q: %w", r.Station, err)
		}
	}
	return tx.Commit()
}

// Load returns the cached readings and when they were fetched.
func (c *Cache) Load(ctx context.Context) ([]model.Reading, time.Time, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT station, lat, lng, aqi, co2, observed_at, fetched_at FROM aq_readings ORDER BY station`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var (
		readings  []model.Reading
		fetchedMs int64
	)
	for rows.Next() {
		var r model.Reading
		var observedMs int64
		if err := rows.Scan(&r.Station, &r.Lat, &r.Lng, &r.AQI, &r.CO2, &observedMs, &fetchedMs); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan reading: %w", err)
		}
		r.ObservedAt = time.UnixMilli(observedMs)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(readings) == 0 {
		return nil, time.Time{}, ErrCacheEmpty
	}
	return readings, time.UnixMilli(fetchedMs), nil
}
