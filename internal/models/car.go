package models

import "time"

type Transmission string

const (
	TransmissionAutomatic Transmission = "Automatic"
	TransmissionManual    Transmission = "Manual"
)

func (t Transmission) IsValid() bool {
	return t == TransmissionAutomatic || t == TransmissionManual
}

type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelHybrid   FuelType = "Hybrid"
)

func (f FuelType) IsValid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid:
		return true
	}
	return false
}

// Car is a listed vehicle. Available is a cached flag driven by the booking lifecycle.
type Car struct {
	ID           string       `json:"id" bson:"_id" yaml:"id"`
	Name         string       `json:"name" bson:"name" yaml:"name"`
	Brand        string       `json:"brand" bson:"brand" yaml:"brand"`
	Model        string       `json:"model,omitempty" bson:"model,omitempty" yaml:"model"`
	Year         int          `json:"year,omitempty" bson:"year,omitempty" yaml:"year"`
	Color        string       `json:"color,omitempty" bson:"color,omitempty" yaml:"color"`
	Mileage      int          `json:"mileage,omitempty" bson:"mileage,omitempty" yaml:"mileage"`
	Image        string       `json:"image" bson:"image" yaml:"image"`
	PricePerDay  float64      `json:"pricePerDay" bson:"price_per_day" yaml:"price_per_day"`
	Available    bool         `json:"available" bson:"available" yaml:"available"`
	Transmission Transmission `json:"transmission" bson:"transmission" yaml:"transmission"`
	FuelType     FuelType     `json:"fuelType" bson:"fuel_type" yaml:"fuel_type"`
	Seats        int          `json:"seats" bson:"seats" yaml:"seats"`
	Features     []string     `json:"features" bson:"features" yaml:"features"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at" yaml:"-"`
}

// ApplyDefaults fills the listing defaults for fields left empty on creation.
func (c *Car) ApplyDefaults() {
	if c.Image == "" {
		c.Image = DefaultCarImage
	}
	if c.Transmission == "" {
		c.Transmission = TransmissionManual
	}
	if c.FuelType == "" {
		c.FuelType = FuelPetrol
	}
	if c.Seats == 0 {
		c.Seats = DefaultCarSeats
	}
	if c.Features == nil {
		c.Features = []string{}
	}
}

// CarFilter narrows the catalog listing. Nil fields are not applied.
type CarFilter struct {
	Brand        string
	Transmission Transmission
	Available    *bool
	MinPrice     *float64
	MaxPrice     *float64
}

// Matches reports whether the car passes every set criterion.
func (f CarFilter) Matches(c *Car) bool {
	if f.Brand != "" && f.Brand != c.Brand {
		return false
	}
	if f.Transmission != "" && f.Transmission != c.Transmission {
		return false
	}
	if f.Available != nil && *f.Available != c.Available {
		return false
	}
	if f.MinPrice != nil && c.PricePerDay < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && c.PricePerDay > *f.MaxPrice {
		return false
	}
	return true
}
