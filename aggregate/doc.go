// Package aggregate builds the parcel "full data" view: the parcel record, its
// geometry, crop cycle yield summaries, yield observations and soil/climate
// snapshots, merged into one FullData and cached as a unit.
//
// Service is the only writer of parcel_full_data cache entries. Mutations do
// not touch those entries directly; they go through invalidation.Coordinator,
// which evicts the aggregate so the next GetFullAggregate rebuilds it.
//
//	svc := aggregate.NewService(objectCache, recordStore, soil, climate,
//		aggregate.WithLogger(logger),
//		aggregate.WithMetrics(aggregate.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	view, err := svc.GetFullAggregate(ctx, principal, parcelID, aggregate.ClimateRange{})
package aggregate
