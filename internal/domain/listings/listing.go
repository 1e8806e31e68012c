package listings

import (
	"math"
	"time"
)

type PropertyType string

const (
	TypeApartment PropertyType = "apartment"
	TypeHouse     PropertyType = "house"
)

type Category string

const (
	CategoryNewConstruction Category = "new-construction"
	CategoryOldBuilding     Category = "old-building"
)

type Heating string

const (
	HeatingCentralized Heating = "centralized"
	HeatingAutonomous  Heating = "autonomous"
	HeatingIndividual  Heating = "individual"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
)

func (t PropertyType) Valid() bool {
	return t == TypeApartment || t == TypeHouse
}

func (c Category) Valid() bool {
	return c == CategoryNewConstruction || c == CategoryOldBuilding
}

func (h Heating) Valid() bool {
	switch h {
	case HeatingCentralized, HeatingAutonomous, HeatingIndividual:
		return true
	}
	return false
}

// Listing is one property offered for sale. Rows are never hard-deleted;
// only Status changes after creation.
type Listing struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"type:varchar(255);not null" json:"title"`
	Description *string      `gorm:"type:text" json:"description"`
	Type        PropertyType `gorm:"type:varchar(50);not null;index" json:"type"`
	Rooms       int          `gorm:"not null;index" json:"rooms"`
	Floor       *int         `json:"floor"`
	TotalFloors int          `gorm:"not null" json:"total_floors"`
	Location    string       `gorm:"type:varchar(255);not null" json:"location"`
	Category    Category     `gorm:"type:varchar(50);not null;index" json:"category"`
	Heating     Heating      `gorm:"type:varchar(50);not null" json:"heating"`
	Balcony     bool         `gorm:"not null;default:false" json:"balcony"`
	Square      float64      `gorm:"type:numeric(10,2);not null" json:"square"`
	Price       float64      `gorm:"type:numeric(15,2);not null;index" json:"price"`
	Status      Status       `gorm:"type:varchar(50);not null;index" json:"status"`
	Code        int          `gorm:"not null;uniqueIndex:idx_listings_code" json:"code"`
	CreatedDate time.Time    `gorm:"type:date;not null;index" json:"created_date"`
}

// PricePerSqMeter is price/square rounded to two decimals; nil when the
// area is not positive.
func (l Listing) PricePerSqMeter() *float64 {
	if l.Square <= 0 {
		return nil
	}
	v := math.Round(l.Price/l.Square*100) / 100
	return &v
}

func (l Listing) IsSold() bool {
	return l.Status == StatusSold
}
