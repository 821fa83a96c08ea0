package domain

import "time"

type Category string

const (
	CategoryJetSki          Category = "JetSki"
	CategoryATV             Category = "ATV"
	CategoryDivingEquipment Category = "DivingEquipment"
	CategorySurfboard       Category = "Surfboard"
	CategoryHelmet          Category = "Helmet"
	CategoryLifeJacket      Category = "LifeJacket"
)

// IsRentable reports whether the category can appear as a reservation line item.
func (c Category) IsRentable() bool {
	switch c {
	case CategoryJetSki, CategoryATV, CategoryDivingEquipment, CategorySurfboard:
		return true
	}
	return false
}

// IsSafetyGear reports whether the category is rider-sized safety equipment.
func (c Category) IsSafetyGear() bool {
	return c == CategoryHelmet || c == CategoryLifeJacket
}

// IsVehicle reports whether units of the category carry riders.
func (c Category) IsVehicle() bool {
	return c == CategoryJetSki || c == CategoryATV
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if c.IsRentable() || c.IsSafetyGear() {
		return c, nil
	}
	return "", Validationf("unknown category %q", s)
}

type Size string

const (
	SizeNone  Size = ""
	SizeChild Size = "child"
	SizeAdult Size = "adult"
	SizeXS    Size = "XS"
	SizeS     Size = "S"
	SizeM     Size = "M"
	SizeL     Size = "L"
	SizeXL    Size = "XL"
)

// GearSizes lists safety-gear sizes in display order.
var GearSizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL}

func (s Size) IsGearSize() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL:
		return true
	}
	return false
}

func (s Size) IsSurfboardSize() bool {
	return s == SizeChild || s == SizeAdult
}

type ResourceStatus string

const (
	ResourceStatusAvailable        ResourceStatus = "available"
	ResourceStatusUnderMaintenance ResourceStatus = "under-maintenance"
	ResourceStatusOutOfStock       ResourceStatus = "out-of-stock"
)

func ParseResourceStatus(s string) (ResourceStatus, error) {
	switch ResourceStatus(s) {
	case ResourceStatusAvailable, ResourceStatusUnderMaintenance, ResourceStatusOutOfStock:
		return ResourceStatus(s), nil
	}
	return "", Validationf("unknown resource status %q", s)
}

// Resource is a rentable product or a piece of safety gear with its owned
// quantity. Bookings live in the resource's Ledger, loaded separately.
type Resource struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    Category       `json:"category"`
	Size        Size           `json:"size,omitempty"`
	Description string         `json:"description,omitempty"`
	PriceCents  int32          `json:"price_cents"`
	Quantity    int32          `json:"quantity"`
	Status      ResourceStatus `json:"status"`
	CreatedOn   time.Time      `json:"created_on"`
	UpdatedOn   time.Time      `json:"updated_on"`
}

// Validate checks the attribute combination of a catalog record.
func (r *Resource) Validate() error {
	if r.Name == "" {
		return Validationf("resource name is required")
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if _, err := ParseResourceStatus(string(r.Status)); err != nil {
		return err
	}
	if r.Quantity < 0 {
		return Validationf("resource quantity must not be negative")
	}
	if r.PriceCents < 0 {
		return Validationf("resource price must not be negative")
	}
	switch {
	case r.Category.IsSafetyGear():
		if !r.Size.IsGearSize() {
			return Validationf("%s requires a size of XS, S, M, L or XL", r.Category)
		}
	case r.Category == CategorySurfboard:
		if !r.Size.IsSurfboardSize() {
			return Validationf("surfboard requires a size category of child or adult")
		}
	default:
		if r.Size != SizeNone {
			return Validationf("%s does not take a size", r.Category)
		}
	}
	return nil
}

// Bookable reports whether new commitments may be placed against the resource.
func (r *Resource) Bookable() bool {
	return r.Status == ResourceStatusAvailable
}

// ResourceFilter selects catalog records. Zero values match everything.
type ResourceFilter struct {
	Category Category
	Size     Size
	Status   ResourceStatus
}

func (f ResourceFilter) Matches(r *Resource) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Size != SizeNone && r.Size != f.Size {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
