package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

type related struct {
	points []store.ParcelPoint
	crops  []store.ParcelCropDetail
	stats  map[uuid.UUID]store.YieldStat
	yields []store.YieldRecord
}

func (s *Service) loadRelated(ctx context.Context, parcelID uuid.UUID) (related, error) {
	var rel related
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		points, err := s.records.ListPoints(gctx, parcelID)
		if err != nil {
			return fmt.Errorf("points: %w", err)
		}
		rel.points = points
		return nil
	})
	g.Go(func() error {
		crops, err := s.records.ListParcelCrops(gctx, parcelID)
		if err != nil {
			return fmt.Errorf("parcel crops: %w", err)
		}
		rel.crops = crops
		return nil
	})
	g.Go(func() error {
		stats, err := s.records.YieldStats(gctx, parcelID)
		if err != nil {
			return fmt.Errorf("yield stats: %w", err)
		}
		rel.stats = stats
		return nil
	})
	g.Go(func() error {
		yields, err := s.records.ListYieldRecords(gctx, parcelID)
		if err != nil {
			return fmt.Errorf("yield records: %w", err)
		}
		rel.yields = yields
		return nil
	})

	if err := g.Wait(); err != nil {
		return related{}, err
	}
	return rel, nil
}

// loadExternal queries both providers concurrently. Failures leave the field
// nil. Without a location neither provider is called. Callers must check ctx
// afterwards: a nil field may come from cancellation rather than the provider.
func (s *Service) loadExternal(ctx context.Context, centroid *PointView, rng ClimateRange) (*SoilSnapshot, *ClimateSeries) {
	if centroid == nil {
		return nil, nil
	}
	loc := Location{Latitude: centroid.Latitude, Longitude: centroid.Longitude}

	var (
		wg      sync.WaitGroup
		soil    *SoilSnapshot
		climate *ClimateSeries
	)

	if s.soil != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot, err := s.soil.FetchSoil(ctx, loc)
			if err != nil {
				s.degrade(ctx, "soil", err)
				return
			}
			soil = snapshot
		}()
	}
	if s.climate != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			series, err := s.climate.FetchClimate(ctx, loc, rng)
			if err != nil {
				s.degrade(ctx, "climate", err)
				return
			}
			climate = series
		}()
	}

	wg.Wait()
	return soil, climate
}

// degrade records a provider failure. Failures caused by the caller's own
// context are not provider failures and are left to rebuild.
func (s *Service) degrade(ctx context.Context, provider string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.metrics.degraded(provider)
	s.logger.Warn("external provider unavailable, field left empty",
		zap.String("provider", provider),
		zap.Error(err),
	)
}

func newParcelView(parcel *store.Parcel, points []store.ParcelPoint) ParcelView {
	view := ParcelView{
		ID:     parcel.ID.String(),
		Name:   parcel.Name,
		Points: make([]PointView, 0, len(points)),
	}
	if len(points) == 0 {
		return view
	}

	var lat, lng float64
	for _, p := range points {
		view.Points = append(view.Points, PointView{Latitude: p.Latitude, Longitude: p.Longitude})
		lat += p.Latitude
		lng += p.Longitude
	}
	n := float64(len(points))
	view.Centroid = &PointView{Latitude: lat / n, Longitude: lng / n}
	return view
}

func summarizeCrops(crops []store.ParcelCropDetail, stats map[uuid.UUID]store.YieldStat) []CropSummary {
	out := make([]CropSummary, 0, len(crops))
	for _, c := range crops {
		summary := CropSummary{ID: c.ID.String(), CropName: c.CropName}
		if st, ok := stats[c.ID]; ok && st.Count > 0 {
			total, avg := st.Total, st.Average
			summary.TotalYield = &total
			summary.AvgYield = &avg
		}
		out = append(out, summary)
	}
	return out
}

func yieldViews(records []store.YieldRecord) []YieldRecordView {
	out := make([]YieldRecordView, 0, len(records))
	for _, r := range records {
		out = append(out, YieldRecordView{
			ID:           r.ID.String(),
			YieldAmount:  r.YieldAmount,
			Date:         r.Date.Format(dateLayout),
			ParcelCropID: r.ParcelCropID.String(),
		})
	}
	return out
}
