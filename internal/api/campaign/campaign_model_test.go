package campaign

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabarak-welfare/welfare-api/internal/types"
)

func validForm() *Form {
	return &Form{
		Title:       "Emergency tuition support",
		Description: "Help a third-year student clear a tuition balance before exams.",
		Goal:        50000,
		Category:    types.CategoryTuitionAssistance,
		Status:      types.StatusActive,
		StartDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFormValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.Nil(t, validForm().Validate())
	})

	t.Run("TitleTooShort", func(t *testing.T) {
		f := validForm()
		f.Title = "Short"
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "title")
	})

	t.Run("TitleTooLong", func(t *testing.T) {
		f := validForm()
		f.Title = strings.Repeat("a", 201)
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "title")
	})

	t.Run("DescriptionTooShort", func(t *testing.T) {
		f := validForm()
		f.Description = "Too short"
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "description")
	})

	t.Run("GoalBelowMinimum", func(t *testing.T) {
		f := validForm()
		f.Goal = 999
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "goal")
	})

	t.Run("NegativeRaised", func(t *testing.T) {
		f := validForm()
		f.Raised = -1
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "raised")
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		f := validForm()
		f.Category = "charity"
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "category")
	})

	t.Run("StatusDefaultsToActive", func(t *testing.T) {
		f := validForm()
		f.Status = ""
		assert.Nil(t, f.Validate())
		assert.Equal(t, types.StatusActive, f.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		f := validForm()
		f.Status = "paused"
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "status")
	})

	t.Run("MissingStartDate", func(t *testing.T) {
		f := validForm()
		f.StartDate = time.Time{}
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "start_date")
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		f := validForm()
		end := f.StartDate.AddDate(0, 0, -1)
		f.EndDate = &end
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "end_date")
	})

	t.Run("TooManyImages", func(t *testing.T) {
		f := validForm()
		f.KeepImageIDs = []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
		f.NewImages = []ImageUpload{{}, {}, {}}
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "images")
	})

	t.Run("FileTooLarge", func(t *testing.T) {
		f := validForm()
		f.NewImages = []ImageUpload{{Data: make([]byte, MaxUploadSize+1)}}
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs, "images")
	})

	t.Run("ErrorListsFields", func(t *testing.T) {
		f := validForm()
		f.Title = "x"
		f.Goal = 0
		errs := f.Validate()
		require.NotNil(t, errs)
		assert.Contains(t, errs.Error(), "goal")
		assert.Contains(t, errs.Error(), "title")
	})
}
