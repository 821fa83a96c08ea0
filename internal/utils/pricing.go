package utils

import (
	"math"

	"beachrental-backend/internal/domain"
)

// PricedLine is one rented line: unit price per slot and quantity.
type PricedLine struct {
	PriceCents int32
	Quantity   int32
}

// PriceBreakdown is the result of pricing a candidate reservation.
type PriceBreakdown struct {
	GrossCents    int32
	DiscountCents int32
	TotalCents    int32
	Units         int32
}

// MultiUnitDiscountPercent applies when more than one unit is rented.
const MultiUnitDiscountPercent = 10

// CalculateReservationPrice prices lines over numSlots slots.
// Gross is the sum of price x quantity x slots; a 10% discount applies when
// the total rented units exceed one. Amounts are integer cents and the
// discount rounds down. A gross that does not fit in int32 cents is rejected.
func CalculateReservationPrice(lines []PricedLine, numSlots int) (PriceBreakdown, error) {
	var gross, units int64
	for _, l := range lines {
		if l.PriceCents < 0 || l.Quantity < 0 {
			return PriceBreakdown{}, domain.Validationf("price and quantity must not be negative")
		}
		gross += int64(l.PriceCents) * int64(l.Quantity) * int64(numSlots)
		units += int64(l.Quantity)
		if gross > math.MaxInt32 {
			return PriceBreakdown{}, domain.Validationf("reservation total exceeds the maximum amount")
		}
	}

	var discount int64
	if units > 1 {
		discount = gross * MultiUnitDiscountPercent / 100
	}

	return PriceBreakdown{
		GrossCents:    int32(gross),
		DiscountCents: int32(discount),
		TotalCents:    int32(gross - discount),
		Units:         int32(units),
	}, nil
}
