package types

import (
	"time"

	"github.com/google/uuid"
)

// CampaignCategory classifies what a fundraising campaign supports.
type CampaignCategory string

const (
	CategoryTuitionAssistance   CampaignCategory = "tuition_assistance"
	CategoryMedicalEmergency    CampaignCategory = "medical_emergency"
	CategoryHousingSupport      CampaignCategory = "housing_support"
	CategoryBooksSupplies       CampaignCategory = "books_supplies"
	CategoryFoodSecurity        CampaignCategory = "food_security"
	CategoryTransportAssistance CampaignCategory = "transport_assistance"
	CategoryTechResources       CampaignCategory = "tech_resources"
	CategoryOther               CampaignCategory = "other"
)

// CampaignCategories lists every accepted category value.
var CampaignCategories = []CampaignCategory{
	CategoryTuitionAssistance,
	CategoryMedicalEmergency,
	CategoryHousingSupport,
	CategoryBooksSupplies,
	CategoryFoodSecurity,
	CategoryTransportAssistance,
	CategoryTechResources,
	CategoryOther,
}

func (c CampaignCategory) Valid() bool {
	for _, known := range CampaignCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	StatusActive    CampaignStatus = "active"
	StatusCompleted CampaignStatus = "completed"
	StatusCancelled CampaignStatus = "cancelled"
)

func (s CampaignStatus) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusCancelled
}

// Campaign is a fundraising drive. Goal and Raised are whole Kenyan
// shillings.
type Campaign struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Goal        int64            `json:"goal"`
	Raised      int64            `json:"raised"`
	Category    CampaignCategory `json:"category"`
	Status      CampaignStatus   `json:"status"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Images      []CampaignImage  `json:"images,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CampaignImage is a picture attached to a campaign, hosted on the
// external image store. StorageID is the opaque key at the host.
type CampaignImage struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	StorageID   string    `json:"storage_id"`
	URL         string    `json:"url"`
	AltText     string    `json:"alt_text,omitempty"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
}

// Response is the generic JSON envelope for simple success/error messages.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
