package listings

import (
	domain "realestate-app/internal/domain/listings"
)

const dateLayout = "2006-01-02"

type PhotoPayload struct {
	PhotoID     uint   `json:"photo_id"`
	ImageBase64 string `json:"image_base64"`
}

// Summary holds the fields every listing response carries.
type Summary struct {
	ID              uint     `json:"id"`
	Title           string   `json:"title"`
	Price           float64  `json:"price"`
	Square          float64  `json:"square"`
	Rooms           int      `json:"rooms"`
	Floor           *int     `json:"floor"`
	Location        string   `json:"location"`
	PricePerSqMeter *float64 `json:"price_per_sq_meter,omitempty"`
	CreatedDate     string   `json:"created_date"`
}

type Item struct {
	Summary
	Photos []PhotoPayload `json:"photos"`
}

type Detail struct {
	Summary
	Description *string             `json:"description"`
	Type        domain.PropertyType `json:"type"`
	TotalFloors int                 `json:"total_floors"`
	Category    domain.Category     `json:"category"`
	Heating     domain.Heating      `json:"heating"`
	Balcony     bool                `json:"balcony"`
	Status      domain.Status       `json:"status"`
	Code        int                 `json:"code"`
	Photos      []PhotoPayload      `json:"photos"`
}

// ShortInfo is the favourites view: Photo is the first photo or null.
type ShortInfo struct {
	Summary
	Photo *PhotoPayload `json:"photo"`
}

type Page struct {
	Objects      []Item `json:"objects"`
	TotalObjects int64  `json:"total_objects"`
	TotalPages   int64  `json:"total_pages"`
	CurrentPage  int    `json:"current_page"`
}

func toSummary(l domain.Listing) Summary {
	return Summary{
		ID:              l.ID,
		Title:           l.Title,
		Price:           l.Price,
		Square:          l.Square,
		Rooms:           l.Rooms,
		Floor:           l.Floor,
		Location:        l.Location,
		PricePerSqMeter: l.PricePerSqMeter(),
		CreatedDate:     l.CreatedDate.Format(dateLayout),
	}
}

func toDetail(l domain.Listing, photos []PhotoPayload) Detail {
	return Detail{
		Summary:     toSummary(l),
		Description: l.Description,
		Type:        l.Type,
		TotalFloors: l.TotalFloors,
		Category:    l.Category,
		Heating:     l.Heating,
		Balcony:     l.Balcony,
		Status:      l.Status,
		Code:        l.Code,
		Photos:      photos,
	}
}
