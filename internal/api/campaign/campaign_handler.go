package campaign

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kabarak-welfare/welfare-api/internal/api"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

// maxFormMemory is how much of a multipart body stays in memory before
// spilling to disk. Uploads above the per-file cap are rejected anyway.
const maxFormMemory = 8 << 20

const dateLayout = "2006-01-02"

type CampaignHandler struct {
	service CampaignService
	logger  *slog.Logger
}

func NewCampaignHandler(service CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: service,
		logger:  logger,
	}
}

// List serves the public campaign listing.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, "list campaigns", err)
		return
	}
	if campaigns == nil {
		campaigns = []types.Campaign{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, campaigns)
}

// Get serves one campaign with its images.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get campaign", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// Create accepts the campaign editor form (multipart) and redirects to
// the admin listing on success.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, verrs, err := parseEditorForm(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Could not read form submission")
		return
	}
	if verrs != nil {
		writeValidationErrors(w, r, verrs)
		return
	}

	c, err := h.service.Create(r.Context(), form)
	if err != nil {
		h.writeError(w, r, "create campaign", err)
		return
	}

	h.logger.InfoContext(r.Context(), "Campaign created via editor", slog.String("campaignID", c.ID.String()))
	h.respondWithCampaign(w, r, c, http.StatusCreated)
}

// Update accepts the editor form for an existing campaign.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	form, verrs, err := parseEditorForm(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Could not read form submission")
		return
	}
	if verrs != nil {
		writeValidationErrors(w, r, verrs)
		return
	}

	c, err := h.service.Update(r.Context(), id, form)
	if err != nil {
		h.writeError(w, r, "update campaign", err)
		return
	}
	h.respondWithCampaign(w, r, c, http.StatusOK)
}

// Delete removes a campaign and its hosted images.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "delete campaign", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Campaign deleted"})
}

func (h *CampaignHandler) respondWithCampaign(w http.ResponseWriter, r *http.Request, c *types.Campaign, status int) {
	if isJSONRequest(r) {
		api.WriteJSONResponse(w, r, status, c)
		return
	}
	http.Redirect(w, r, "/admin/campaigns", http.StatusSeeOther)
}

func (h *CampaignHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Campaign not found")
	case errors.Is(err, types.ErrBadRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrStoreUnavailable):
		h.logger.ErrorContext(r.Context(), "Store unavailable", slog.String("op", op), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
	default:
		h.logger.ErrorContext(r.Context(), "Campaign operation failed", slog.String("op", op), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}

func isJSONRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/json") || strings.HasPrefix(accept, "application/json")
}

type validationResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Fields  map[string][]string `json:"fields"`
}

func writeValidationErrors(w http.ResponseWriter, r *http.Request, verrs ValidationErrors) {
	api.WriteJSONResponse(w, r, http.StatusBadRequest, validationResponse{
		Success: false,
		Error:   verrs.Error(),
		Fields:  verrs,
	})
}

// parseEditorForm reads the multipart editor submission. Returns
// validation errors for rule failures and a plain error only when the
// body itself is unreadable.
func parseEditorForm(r *http.Request) (*Form, ValidationErrors, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, fmt.Errorf("parse multipart form: %w", err)
	}

	verrs := ValidationErrors{}
	form := &Form{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    types.CampaignCategory(r.FormValue("category")),
		Status:      types.CampaignStatus(r.FormValue("status")),
	}

	if v := r.FormValue("goal"); v != "" {
		goal, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			verrs.add("goal", "Goal must be a whole number")
		} else {
			form.Goal = goal
		}
	}
	if v := r.FormValue("raised"); v != "" {
		raised, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			verrs.add("raised", "Raised amount must be a whole number")
		} else {
			form.Raised = raised
		}
	}
	if v := r.FormValue("start_date"); v != "" {
		start, err := time.Parse(dateLayout, v)
		if err != nil {
			verrs.add("start_date", "Start date must be YYYY-MM-DD")
		} else {
			form.StartDate = start
		}
	}
	if v := r.FormValue("end_date"); v != "" {
		end, err := time.Parse(dateLayout, v)
		if err != nil {
			verrs.add("end_date", "End date must be YYYY-MM-DD")
		} else {
			form.EndDate = &end
		}
	}
	for _, raw := range r.Form["keep_image_ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				verrs.add("keep_image_ids", "Invalid image id")
				continue
			}
			form.KeepImageIDs = append(form.KeepImageIDs, id)
		}
	}

	if r.MultipartForm != nil {
		altTexts := r.MultipartForm.Value["image_alt_texts"]
		for i, header := range r.MultipartForm.File["images"] {
			if header.Size > MaxUploadSize {
				verrs.add("images", fmt.Sprintf("%s: File size must be less than 3MB", header.Filename))
				continue
			}
			file, err := header.Open()
			if err != nil {
				return nil, nil, fmt.Errorf("open upload %q: %w", header.Filename, err)
			}
			data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
			file.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("read upload %q: %w", header.Filename, err)
			}
			if len(data) > MaxUploadSize {
				verrs.add("images", fmt.Sprintf("%s: File size must be less than 3MB", header.Filename))
				continue
			}
			upload := ImageUpload{
				Data:        data,
				ContentType: header.Header.Get("Content-Type"),
				Filename:    header.Filename,
			}
			if i < len(altTexts) {
				upload.AltText = strings.TrimSpace(altTexts[i])
			}
			form.NewImages = append(form.NewImages, upload)
		}
	}

	if ruleErrs := form.Validate(); ruleErrs != nil {
		for field, msgs := range ruleErrs {
			for _, msg := range msgs {
				verrs.add(field, msg)
			}
		}
	}
	if len(verrs) > 0 {
		return form, verrs, nil
	}
	return form, nil, nil
}
