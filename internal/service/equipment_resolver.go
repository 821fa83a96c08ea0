package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

// RidersPerVehicle is the seat count of one JetSki or ATV.
const RidersPerVehicle = 2

// GearRequest asks for quantity pieces of one safety-gear size.
type GearRequest struct {
	Category domain.Category `json:"category"`
	Size     domain.Size     `json:"size"`
	Quantity int32           `json:"quantity"`
}

// RentedLine is a line item with its resource already loaded.
type RentedLine struct {
	Resource *domain.Resource
	Quantity int32
}

// GearResolution is the input of EquipmentResolver.Resolve.
type GearResolution struct {
	Date   string
	Slots  []int
	Items  []RentedLine
	Riders int32
	Gear   []GearRequest
}

// GearRequirements summarizes what a set of rented lines needs.
type GearRequirements struct {
	Helmet        bool
	LifeJacket    bool
	RiderCapacity int32
}

// Any reports whether any safety gear is required.
func (g GearRequirements) Any() bool { return g.Helmet || g.LifeJacket }

// Requires reports whether gear of category c is required.
func (g GearRequirements) Requires(c domain.Category) bool {
	switch c {
	case domain.CategoryHelmet:
		return g.Helmet
	case domain.CategoryLifeJacket:
		return g.LifeJacket
	}
	return false
}

// RequiredGear derives gear categories and rider capacity from rented lines.
func RequiredGear(items []RentedLine) GearRequirements {
	var req GearRequirements
	for _, it := range items {
		switch it.Resource.Category {
		case domain.CategoryJetSki:
			req.Helmet = true
			req.LifeJacket = true
		case domain.CategoryATV:
			req.Helmet = true
		default:
			continue
		}
		seats := int64(req.RiderCapacity) + int64(it.Quantity)*RidersPerVehicle
		if seats > math.MaxInt32 {
			seats = math.MaxInt32
		}
		req.RiderCapacity = int32(seats)
	}
	return req
}

type equipmentResolver struct {
	resources repository.ResourceRepository
	inventory InventoryService
}

func NewEquipmentResolver(resources repository.ResourceRepository, inventory InventoryService) EquipmentResolver {
	return &equipmentResolver{resources: resources, inventory: inventory}
}

type gearKey struct {
	category domain.Category
	size     domain.Size
}

func (r *equipmentResolver) Resolve(ctx context.Context, req GearResolution) ([]domain.ReservationItem, error) {
	logger.EnterMethod("equipmentResolver.Resolve", "date", req.Date, "riders", req.Riders, "gear", len(req.Gear))

	needs := RequiredGear(req.Items)
	if !needs.Any() {
		if len(req.Gear) > 0 {
			err := domain.Validationf("safety equipment is only rented with JetSki or ATV")
			logger.ExitMethodWithError("equipmentResolver.Resolve", err)
			return nil, err
		}
		logger.ExitMethod("equipmentResolver.Resolve", "required", false)
		return nil, nil
	}

	if req.Riders < 1 || req.Riders > needs.RiderCapacity {
		err := domain.Validationf("number of riders must be between 1 and %d", needs.RiderCapacity)
		logger.ExitMethodWithError("equipmentResolver.Resolve", err)
		return nil, err
	}

	merged, err := mergeGear(req.Gear, needs)
	if err != nil {
		logger.ExitMethodWithError("equipmentResolver.Resolve", err)
		return nil, err
	}

	totals := map[domain.Category]int64{}
	for k, qty := range merged {
		totals[k.category] += int64(qty)
	}
	for _, c := range []domain.Category{domain.CategoryHelmet, domain.CategoryLifeJacket} {
		if needs.Requires(c) && totals[c] != int64(req.Riders) {
			err := domain.Validationf("%s quantity must match the number of riders (%d), got %d", c, req.Riders, totals[c])
			logger.ExitMethodWithError("equipmentResolver.Resolve", err)
			return nil, err
		}
	}

	keys := make([]gearKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].size < keys[j].size
	})

	out := make([]domain.ReservationItem, 0, len(keys))
	for _, k := range keys {
		item, err := r.matchGear(ctx, req.Date, req.Slots, k, merged[k])
		if err != nil {
			logger.ExitMethodWithError("equipmentResolver.Resolve", err, "category", k.category, "size", k.size)
			return nil, err
		}
		out = append(out, item)
	}

	logger.ExitMethod("equipmentResolver.Resolve", "gear_items", len(out))
	return out, nil
}

func mergeGear(gear []GearRequest, needs GearRequirements) (map[gearKey]int32, error) {
	merged := make(map[gearKey]int32, len(gear))
	for _, g := range gear {
		if !g.Category.IsSafetyGear() {
			return nil, domain.Validationf("%q is not safety equipment", g.Category)
		}
		if !needs.Requires(g.Category) {
			return nil, domain.Validationf("%s is not required for the rented items", g.Category)
		}
		if !g.Size.IsGearSize() {
			return nil, domain.Validationf("invalid %s size %q", g.Category, g.Size)
		}
		if g.Quantity < 1 {
			return nil, domain.Validationf("%s %s quantity must be at least 1", g.Category, g.Size)
		}
		k := gearKey{g.Category, g.Size}
		if int64(merged[k])+int64(g.Quantity) > int64(needs.RiderCapacity) {
			return nil, domain.Validationf("%s quantity exceeds rider capacity %d", g.Category, needs.RiderCapacity)
		}
		merged[k] += g.Quantity
	}
	return merged, nil
}

// matchGear picks the first available resource of the size with room for qty.
func (r *equipmentResolver) matchGear(ctx context.Context, date string, slots []int, k gearKey, qty int32) (domain.ReservationItem, error) {
	candidates, err := r.resources.FindMatching(ctx, domain.ResourceFilter{
		Category: k.category,
		Size:     k.size,
		Status:   domain.ResourceStatusAvailable,
	})
	if err != nil {
		return domain.ReservationItem{}, fmt.Errorf("failed to look up %s %s: %w", k.category, k.size, err)
	}
	if len(candidates) == 0 {
		return domain.ReservationItem{}, domain.Validationf("%s size %s not available", k.category, k.size)
	}

	var conflict *domain.ConflictError
	for i := range candidates {
		res := &candidates[i]
		ok, slot, err := r.inventory.CheckAvailability(ctx, res, date, slots, qty)
		if err != nil {
			return domain.ReservationItem{}, err
		}
		if ok {
			return domain.ReservationItem{ResourceID: res.ID, Quantity: qty}, nil
		}
		if conflict == nil {
			avail, err := r.inventory.AvailableQuantity(ctx, res, date, slot)
			if err != nil {
				return domain.ReservationItem{}, err
			}
			conflict = &domain.ConflictError{
				ResourceID: res.ID, Date: date, Slot: slot, Requested: qty, Available: avail,
			}
		}
	}
	return domain.ReservationItem{}, conflict
}
