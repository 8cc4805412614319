package campaign

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kabarak-welfare/welfare-api/internal/types"
)

const (
	// MaxUploadSize caps a single image upload at 3 MiB.
	MaxUploadSize = 3 << 20
	// MaxImagesPerCampaign caps how many images a campaign may carry.
	MaxImagesPerCampaign = 5

	minTitleLen       = 10
	maxTitleLen       = 200
	minDescriptionLen = 20
	minGoal           = 1000
)

// ImageUpload is a new image file submitted through the editor.
type ImageUpload struct {
	Data        []byte
	ContentType string
	AltText     string
	Filename    string
}

// Form is a parsed campaign-editor submission. KeepImageIDs lists the
// existing image rows the submission retains; images absent from it are
// removed from the campaign and the image host on update.
type Form struct {
	Title        string
	Description  string
	Goal         int64
	Raised       int64
	Category     types.CampaignCategory
	Status       types.CampaignStatus
	StartDate    time.Time
	EndDate      *time.Time
	KeepImageIDs []uuid.UUID
	NewImages    []ImageUpload
}

// ValidationErrors maps form field names to their failure messages.
type ValidationErrors map[string][]string

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed for: %s", strings.Join(fields, ", "))
}

// Validate checks the editor submission against the campaign rules and
// returns a field-keyed error set, or nil when the form is acceptable.
func (f *Form) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if n := len(strings.TrimSpace(f.Title)); n < minTitleLen || n > maxTitleLen {
		errs.add("title", fmt.Sprintf("Title must be between %d and %d characters", minTitleLen, maxTitleLen))
	}
	if len(strings.TrimSpace(f.Description)) < minDescriptionLen {
		errs.add("description", fmt.Sprintf("Description must be at least %d characters", minDescriptionLen))
	}
	if f.Goal < minGoal {
		errs.add("goal", fmt.Sprintf("Goal must be at least %d KES", minGoal))
	}
	if f.Raised < 0 {
		errs.add("raised", "Raised amount cannot be negative")
	}
	if !f.Category.Valid() {
		errs.add("category", "Select a valid category")
	}
	if f.Status == "" {
		f.Status = types.StatusActive
	} else if !f.Status.Valid() {
		errs.add("status", "Select a valid campaign status")
	}
	if f.StartDate.IsZero() {
		errs.add("start_date", "Start date is required")
	}
	if f.EndDate != nil && !f.StartDate.IsZero() && f.EndDate.Before(f.StartDate) {
		errs.add("end_date", "End date must be after the start date")
	}
	if len(f.KeepImageIDs)+len(f.NewImages) > MaxImagesPerCampaign {
		errs.add("images", fmt.Sprintf("A campaign can have at most %d images", MaxImagesPerCampaign))
	}
	for _, img := range f.NewImages {
		if len(img.Data) > MaxUploadSize {
			errs.add("images", "File size must be less than 3MB")
			break
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
