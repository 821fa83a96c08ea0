package service

import (
	"context"
	"fmt"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
	"beachrental-backend/internal/utils"
)

// SlotAvailability is the remaining quantity of one resource in one slot.
type SlotAvailability struct {
	Slot      int    `json:"slot"`
	Time      string `json:"time"`
	Available int32  `json:"available"`
}

// ResourceAvailability annotates a resource with its free quantity per slot.
// Vehicles carry the availability of the safety gear they require, by size.
type ResourceAvailability struct {
	Resource          domain.Resource                                        `json:"resource"`
	Slots             []SlotAvailability                                     `json:"slots"`
	RequiredEquipment map[domain.Category]map[domain.Size][]SlotAvailability `json:"required_equipment,omitempty"`
}

type availabilityService struct {
	resources repository.ResourceRepository
	bookings  repository.BookingRepository
	calendar  *utils.SlotCalendar
}

func NewAvailabilityService(resources repository.ResourceRepository, bookings repository.BookingRepository, calendar *utils.SlotCalendar) AvailabilityService {
	return &availabilityService{resources: resources, bookings: bookings, calendar: calendar}
}

func (s *availabilityService) ForDate(ctx context.Context, date string) ([]ResourceAvailability, error) {
	logger.EnterMethod("availabilityService.ForDate", "date", date)

	if _, err := s.calendar.ParseDate(date); err != nil {
		logger.ExitMethodWithError("availabilityService.ForDate", err)
		return nil, err
	}

	resources, err := s.resources.FindMatching(ctx, domain.ResourceFilter{Status: domain.ResourceStatusAvailable})
	if err != nil {
		logger.ExitMethodWithError("availabilityService.ForDate", err)
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	ledgers, err := s.bookings.LedgersForDate(ctx, date)
	if err != nil {
		logger.ExitMethodWithError("availabilityService.ForDate", err)
		return nil, fmt.Errorf("failed to load ledgers for %s: %w", date, err)
	}

	out := make([]ResourceAvailability, 0, len(resources))
	for _, res := range resources {
		if !res.Category.IsRentable() {
			continue
		}
		out = append(out, ResourceAvailability{
			Resource: res,
			Slots:    slotGrid(ledgers[res.ID], res.Quantity, date),
		})
	}

	logger.ExitMethod("availabilityService.ForDate", "resources", len(out))
	return out, nil
}

func (s *availabilityService) ForResource(ctx context.Context, date, resourceID string) (*ResourceAvailability, error) {
	logger.EnterMethod("availabilityService.ForResource", "date", date, "resource_id", resourceID)

	if _, err := s.calendar.ParseDate(date); err != nil {
		logger.ExitMethodWithError("availabilityService.ForResource", err)
		return nil, err
	}

	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		logger.ExitMethodWithError("availabilityService.ForResource", err)
		return nil, err
	}
	ledgers, err := s.bookings.LedgersForDate(ctx, date)
	if err != nil {
		logger.ExitMethodWithError("availabilityService.ForResource", err)
		return nil, fmt.Errorf("failed to load ledgers for %s: %w", date, err)
	}

	out := &ResourceAvailability{
		Resource: *res,
		Slots:    slotGrid(ledgers[res.ID], res.Quantity, date),
	}

	needs := RequiredGear([]RentedLine{{Resource: res, Quantity: 1}})
	if needs.Any() {
		out.RequiredEquipment = map[domain.Category]map[domain.Size][]SlotAvailability{}
		for _, c := range []domain.Category{domain.CategoryHelmet, domain.CategoryLifeJacket} {
			if !needs.Requires(c) {
				continue
			}
			bySize, err := s.gearGrid(ctx, c, date, ledgers)
			if err != nil {
				logger.ExitMethodWithError("availabilityService.ForResource", err)
				return nil, err
			}
			out.RequiredEquipment[c] = bySize
		}
	}

	logger.ExitMethod("availabilityService.ForResource")
	return out, nil
}

// gearGrid sums the free quantity of every available resource per size.
func (s *availabilityService) gearGrid(ctx context.Context, c domain.Category, date string, ledgers map[string]domain.Ledger) (map[domain.Size][]SlotAvailability, error) {
	gear, err := s.resources.FindMatching(ctx, domain.ResourceFilter{Category: c, Status: domain.ResourceStatusAvailable})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	out := map[domain.Size][]SlotAvailability{}
	for _, g := range gear {
		grid := slotGrid(ledgers[g.ID], g.Quantity, date)
		if cur, ok := out[g.Size]; ok {
			for i := range cur {
				cur[i].Available += grid[i].Available
			}
			continue
		}
		out[g.Size] = grid
	}
	return out, nil
}

func slotGrid(ledger domain.Ledger, total int32, date string) []SlotAvailability {
	grid := make([]SlotAvailability, utils.SlotsPerDay)
	for slot := range grid {
		grid[slot] = SlotAvailability{
			Slot:      slot,
			Time:      utils.FormatSlot(slot),
			Available: ledger.Available(total, date, slot),
		}
	}
	return grid
}
