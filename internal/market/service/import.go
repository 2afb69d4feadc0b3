package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead_routing_backend/internal/domain"
	"lead_routing_backend/internal/market/repository"

	"gopkg.in/yaml.v3"
)

// StatsRecord is one row of an aggregator export.
type StatsRecord struct {
	City              string   `yaml:"city" json:"city" validate:"required,min=2,max=100"`
	State             string   `yaml:"state" json:"state" validate:"required,min=2,max=50"`
	EventType         string   `yaml:"event_type" json:"eventType" validate:"required,eventtype"`
	PriceLow          float64  `yaml:"price_low" json:"priceLow" validate:"gte=0"`
	PriceMedian       float64  `yaml:"price_median" json:"priceMedian" validate:"gt=0"`
	PriceHigh         float64  `yaml:"price_high" json:"priceHigh" validate:"gte=0"`
	SampleSize        int      `yaml:"sample_size" json:"sampleSize" validate:"gte=0"`
	DataQuality       string   `yaml:"data_quality" json:"dataQuality" validate:"omitempty,oneof=high medium low"`
	DemandSupplyRatio *float64 `yaml:"demand_supply_ratio" json:"demandSupplyRatio" validate:"omitempty,gte=0"`
	MarketTension     string   `yaml:"market_tension" json:"marketTension" validate:"omitempty,oneof=high medium low"`
}

type statsDocument struct {
	Stats []StatsRecord `yaml:"stats"`
}

// ParseStatsDocument reads a YAML export of the form `stats: [...]`.
func ParseStatsDocument(raw []byte) ([]StatsRecord, error) {
	var doc statsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse stats document: %w", err)
	}
	return doc.Stats, nil
}

// Importer loads aggregator snapshots into storage and drops stale cache entries.
type Importer struct {
	writer repository.StatsWriter
	cache  *PricingCache
}

func NewImporter(writer repository.StatsWriter, cache *PricingCache) *Importer {
	return &Importer{writer: writer, cache: cache}
}

// ImportResult counts written rows and describes rejected ones.
type ImportResult struct {
	Written  int      `json:"written"`
	Rejected []string `json:"rejected,omitempty"`
}

// Import upserts every valid record. Invalid records are reported in the
// result and do not stop the others; a storage failure aborts the import.
func (i *Importer) Import(ctx context.Context, records []StatsRecord) (ImportResult, error) {
	var res ImportResult
	for idx, rec := range records {
		stats, err := rec.toDomain()
		if err != nil {
			res.Rejected = append(res.Rejected, fmt.Sprintf("record %d: %v", idx, err))
			continue
		}
		if err := i.writer.UpsertStats(ctx, stats); err != nil {
			return res, err
		}
		res.Written++
		_ = i.cache.Invalidate(ctx, stats.City, stats.State, stats.EventType)
		_ = i.cache.Invalidate(ctx, stats.City, "", stats.EventType)
	}
	return res, nil
}

func (r StatsRecord) toDomain() (domain.CityEventStats, error) {
	eventType, err := domain.ParseEventType(r.EventType)
	if err != nil {
		return domain.CityEventStats{}, err
	}
	if r.PriceLow > r.PriceMedian || r.PriceMedian > r.PriceHigh {
		return domain.CityEventStats{}, errors.New("prices must satisfy low <= median <= high")
	}

	stats := domain.CityEventStats{
		City:              strings.TrimSpace(r.City),
		State:             strings.TrimSpace(r.State),
		EventType:         eventType,
		PriceLow:          r.PriceLow,
		PriceMedian:       r.PriceMedian,
		PriceHigh:         r.PriceHigh,
		SampleSize:        r.SampleSize,
		DataQuality:       DataQualityFor(r.SampleSize),
		DemandSupplyRatio: r.DemandSupplyRatio,
	}
	if r.DataQuality != "" {
		if stats.DataQuality, err = domain.ParseDataQuality(r.DataQuality); err != nil {
			return domain.CityEventStats{}, err
		}
	}
	if r.MarketTension != "" {
		tension, err := domain.ParseMarketTension(r.MarketTension)
		if err != nil {
			return domain.CityEventStats{}, err
		}
		stats.MarketTension = &tension
	}
	return stats, nil
}
