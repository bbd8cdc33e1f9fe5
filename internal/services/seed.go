package services

import (
	"context"

	"autolot/internal/domain"
	applog "autolot/internal/log"
	"autolot/internal/repos"
)

func strp(s string) *string { return &s }
func i64p(n int64) *int64   { return &n }
func intp(n int) *int       { return &n }

func demoListings() []domain.ListingPatch {
	return []domain.ListingPatch{
		{
			Title: strp("2022 Honda Civic EX"), Brand: strp("Honda"), Year: intp(2022),
			Price: i64p(8500000), Mileage: i64p(40000), Condition: strp("good"),
			Fuel: strp("petrol"), Transmission: strp("automatic"),
			Description: strp("One owner, full service history."),
		},
		{
			Title: strp("2018 Toyota Hilux Double Cab"), Brand: strp("Toyota"), Year: intp(2018),
			Price: i64p(14200000), Mileage: i64p(98000), Condition: strp("fair"),
			Fuel: strp("diesel"), Transmission: strp("manual"),
			Description: strp("Workhorse pickup, new tyres."),
		},
		{
			Title: strp("2020 Mercedes-Benz C300"), Brand: strp("Mercedes-Benz"), Year: intp(2020),
			Price: i64p(21000000), Mileage: i64p(35500), Condition: strp("excellent"),
			Fuel: strp("petrol"), Transmission: strp("automatic"),
			Description: strp("AMG line, panoramic roof."),
		},
	}
}

// SeedDemo inserts demo listings when the store has none. It returns how many were created.
func SeedDemo(ctx context.Context, listings *repos.ListingRepo) (int, error) {
	existing, err := listings.Index(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	n := 0
	for _, p := range demoListings() {
		l, err := listings.Create(ctx, p)
		if err != nil {
			return n, err
		}
		n++
		applog.Info(nil, "seed.listing", map[string]any{"id": l.ID, "title": l.Title})
	}
	return n, nil
}
