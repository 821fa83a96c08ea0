package app

import (
	"context"
	"fmt"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

// DefaultCatalog is the starter inventory of a beach rental desk.
func DefaultCatalog() []domain.Resource {
	catalog := []domain.Resource{
		{Name: "Jet Ski", Category: domain.CategoryJetSki, PriceCents: 10000, Quantity: 5,
			Description: "Two-seat personal watercraft"},
		{Name: "ATV", Category: domain.CategoryATV, PriceCents: 8000, Quantity: 3,
			Description: "Two-seat beach quad"},
		{Name: "Diving Set", Category: domain.CategoryDivingEquipment, PriceCents: 4000, Quantity: 10,
			Description: "Mask, fins, tank and regulator"},
		{Name: "Surfboard (adult)", Category: domain.CategorySurfboard, Size: domain.SizeAdult, PriceCents: 2500, Quantity: 8},
		{Name: "Surfboard (child)", Category: domain.CategorySurfboard, Size: domain.SizeChild, PriceCents: 1500, Quantity: 5},
	}
	gearQty := map[domain.Size]int32{domain.SizeS: 5, domain.SizeM: 10, domain.SizeL: 8}
	for _, c := range []domain.Category{domain.CategoryHelmet, domain.CategoryLifeJacket} {
		for _, size := range []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL} {
			catalog = append(catalog, domain.Resource{
				Name:     fmt.Sprintf("%s %s", c, size),
				Category: c,
				Size:     size,
				Quantity: gearQty[size],
			})
		}
	}
	for i := range catalog {
		catalog[i].Status = domain.ResourceStatusAvailable
	}
	return catalog
}

// SeedCatalog inserts every resource of catalog whose category and size are
// not yet present. It returns how many were inserted.
func SeedCatalog(ctx context.Context, resources repository.ResourceRepository, catalog []domain.Resource) (int, error) {
	inserted := 0
	for i := range catalog {
		res := catalog[i]
		if err := res.Validate(); err != nil {
			return inserted, fmt.Errorf("invalid catalog entry %q: %w", res.Name, err)
		}
		existing, err := resources.FindMatching(ctx, domain.ResourceFilter{Category: res.Category, Size: res.Size})
		if err != nil {
			return inserted, err
		}
		if hasSize(existing, res.Size) {
			logger.Debug("Catalog entry already present", "name", res.Name)
			continue
		}
		if err := resources.Create(ctx, &res); err != nil {
			return inserted, fmt.Errorf("failed to create %q: %w", res.Name, err)
		}
		logger.Info("Seeded resource", "id", res.ID, "name", res.Name, "quantity", res.Quantity)
		inserted++
	}
	return inserted, nil
}

// hasSize guards against a zero filter size matching every size.
func hasSize(list []domain.Resource, size domain.Size) bool {
	for _, r := range list {
		if r.Size == size {
			return true
		}
	}
	return false
}
