package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Location is where a spot sits on the map.
type Location struct {
	Name      string  `gorm:"size:255" json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Category groups what a spot offers.
type Category struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// PopularCategory is a highlighted offering with a price tag.
type PopularCategory struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// Spot is a user-submitted point of interest.
type Spot struct {
	ID                string                               `gorm:"primaryKey;size:36" json:"id"`
	Creator           string                               `gorm:"size:36;not null;index" json:"creator"`
	ContactNumber     string                               `gorm:"size:50;not null" json:"contactNumber"`
	PublicKey         string                               `gorm:"size:512;not null" json:"publicKey"`
	Title             string                               `gorm:"size:255;not null" json:"title"`
	Location          Location                             `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	About             string                               `gorm:"type:text" json:"about"`
	Category          string                               `gorm:"size:100;not null" json:"category"`
	Description       string                               `gorm:"type:text" json:"description"`
	Categories        datatypes.JSONSlice[Category]        `json:"categories"`
	PopularCategories datatypes.JSONSlice[PopularCategory] `json:"popularCategories"`
	Image             string                               `gorm:"size:1024" json:"image"`
	Video             string                               `gorm:"size:1024" json:"video"`
	Rating            int                                  `gorm:"not null;default:0" json:"rating"`
	Likes             datatypes.JSONSlice[string]          `json:"likes"`
	LikesCount        int                                  `gorm:"not null;default:0" json:"likesCount"`
	Views             datatypes.JSONSlice[string]          `json:"views"`
	ViewsCount        int                                  `gorm:"not null;default:0;index" json:"viewsCount"`
	CreatedAt         time.Time                            `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time                            `json:"updatedAt"`
}

// TableName pins the table name for gorm.
func (Spot) TableName() string {
	return "spots"
}

// BeforeCreate assigns an id when the caller did not.
func (s *Spot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// FileURLs lists every stored file the spot references, in a stable order.
func (s *Spot) FileURLs() []string {
	var urls []string
	if s.Image != "" {
		urls = append(urls, s.Image)
	}
	if s.Video != "" {
		urls = append(urls, s.Video)
	}
	for _, c := range s.Categories {
		if c.Image != "" {
			urls = append(urls, c.Image)
		}
	}
	for _, c := range s.PopularCategories {
		if c.Image != "" {
			urls = append(urls, c.Image)
		}
	}
	return urls
}
