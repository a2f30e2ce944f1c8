// Package db holds the postgres persistence layer: schema migration, the
// initial map import and the stores the API reads from.
package db

import (
	"fmt"
	"log"
	"time"

	"eco-route/algo"
	"eco-route/config"
	"eco-route/data"
	"eco-route/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const batchSize = 100

// InitDB connects to postgres, retrying while the database comes up, then
// migrates the schema and imports the embedded map when the tables are empty.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	retries := max(cfg.MaxRetries, 1)
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			break
		}
		log.Printf("db: waiting for database (%d/%d): %v", i+1, retries, err)
		time.Sleep(cfg.RetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Node{}, &model.Edge{}, &model.Area{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	var nodeCount int64
	if err := db.Model(&model.Node{}).Count(&nodeCount).Error; err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	if nodeCount == 0 {
		log.Println("db: empty map tables, importing embedded Mysore map")
		md, err := data.Mysore()
		if err != nil {
			return nil, err
		}
		if err := ImportMapData(db, md); err != nil {
			return nil, err
		}
	}

	log.Println("db: connected and initialized")
	return db, nil
}

// ImportMapData inserts nodes, edges and areas in one transaction.
func ImportMapData(db *gorm.DB, md *model.MapData) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if len(md.Nodes) > 0 {
			if err := tx.CreateInBatches(md.Nodes, batchSize).Error; err != nil {
				return fmt.Errorf("insert nodes: %w", err)
			}
		}
		if len(md.Edges) > 0 {
			edges := make([]model.Edge, len(md.Edges))
			copy(edges, md.Edges)
			for i := range edges {
				edges[i].ID = 0
			}
			if err := tx.CreateInBatches(edges, batchSize).Error; err != nil {
				return fmt.Errorf("insert edges: %w", err)
			}
		}
		if len(md.Areas) > 0 {
			if err := tx.CreateInBatches(md.Areas, batchSize).Error; err != nil {
				return fmt.Errorf("insert areas: %w", err)
			}
		}
		log.Printf("db: imported %d nodes, %d edges, %d areas", len(md.Nodes), len(md.Edges), len(md.Areas))
		return nil
	})
}

// LoadMapData reads the whole map back in a stable order.
func LoadMapData(db *gorm.DB) (*model.MapData, error) {
	md := &model.MapData{Meta: map[string]interface{}{"source": "db"}}
	if err := db.Order("id").Find(&md.Nodes).Error; err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	if err := db.Order("id").Find(&md.Edges).Error; err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	areas, err := LoadAreas(db)
	if err != nil {
		return nil, err
	}
	md.Areas = areas
	return md, nil
}

// LoadGraph builds the routing graph from the nodes and edges tables.
func LoadGraph(db *gorm.DB, opts algo.Options) (*algo.Graph, []model.Area, error) {
	md, err := LoadMapData(db)
	if err != nil {
		return nil, nil, err
	}
	g, err := algo.BuildGraph(md, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("build graph from db: %w", err)
	}
	return g, md.Areas, nil
}

// LoadAreas returns the gazetteer ordered by name.
func LoadAreas(db *gorm.DB) ([]model.Area, error) {
	var areas []model.Area
	if err := db.Order("name").Find(&areas).Error; err != nil {
		return nil, fmt.Errorf("load areas: %w", err)
	}
	return areas, nil
}
