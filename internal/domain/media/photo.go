package media

import "realestate-app/internal/domain/listings"

// Photo is one image attached to a listing. FilePath is an opaque key into
// the photo store, never a URL.
type Photo struct {
	ID        uint              `gorm:"primaryKey" json:"photo_id"`
	ListingID uint              `gorm:"not null;index" json:"object_id"`
	Listing   *listings.Listing `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	FilePath  string            `gorm:"not null" json:"file_path"`
}
