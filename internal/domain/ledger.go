package domain

import "sort"

// BookingKey addresses a single ledger entry.
type BookingKey struct {
	Date string `json:"date"`
	Slot int    `json:"slot"`
}

// BookingEntry is a materialised ledger row.
type BookingEntry struct {
	Date     string `json:"date"`
	Slot     int    `json:"slot"`
	Quantity int32  `json:"quantity"`
}

// Ledger holds the committed quantity per (date, slot) for one resource.
// A key is present only while its quantity is positive.
type Ledger map[BookingKey]int32

func (l Ledger) Committed(date string, slot int) int32 {
	return l[BookingKey{Date: date, Slot: slot}]
}

// Available returns the remaining units at a key given the owned quantity.
func (l Ledger) Available(total int32, date string, slot int) int32 {
	return total - l.Committed(date, slot)
}

// Fits reports whether qty units are free in every one of slots. Slots are
// checked independently.
func (l Ledger) Fits(total int32, date string, slots []int, qty int32) (bool, int) {
	for _, s := range slots {
		if l.Available(total, date, s) < qty {
			return false, s
		}
	}
	return true, -1
}

// Commit adds qty to every slot. It does not check capacity.
func (l Ledger) Commit(date string, slots []int, qty int32) {
	for _, s := range slots {
		l[BookingKey{Date: date, Slot: s}] += qty
	}
}

// Release subtracts qty from every slot and removes entries that reach zero.
// Over-release clamps the entry to absent and reports ErrLedgerDrift once the
// whole release has been applied.
func (l Ledger) Release(date string, slots []int, qty int32) error {
	var drift bool
	for _, s := range slots {
		k := BookingKey{Date: date, Slot: s}
		left := l[k] - qty
		if left < 0 {
			drift = true
		}
		if left <= 0 {
			delete(l, k)
			continue
		}
		l[k] = left
	}
	if drift {
		return ErrLedgerDrift
	}
	return nil
}

// Entries returns the ledger ordered by date then slot.
func (l Ledger) Entries() []BookingEntry {
	out := make([]BookingEntry, 0, len(l))
	for k, q := range l {
		out = append(out, BookingEntry{Date: k.Date, Slot: k.Slot, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// Clone returns an independent copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, q := range l {
		out[k] = q
	}
	return out
}
