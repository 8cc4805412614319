package campaign

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/storage"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

var _ CampaignService = (*CampaignServiceImpl)(nil)

const (
	listCacheKey = "campaigns:list"
	listCacheTTL = 30 * time.Second

	// uploadConcurrency bounds parallel transfers to the image host.
	uploadConcurrency = 3
)

// CampaignService holds the campaign business logic: validation,
// image-host orchestration, and the listing cache.
type CampaignService interface {
	Create(ctx context.Context, form *Form) (*types.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, form *Form) (*types.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Campaign, error)
	List(ctx context.Context) ([]types.Campaign, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CampaignServiceImpl struct {
	logger *slog.Logger
	repo   CampaignRepo
	images storage.ImageStore
	cache  *gocache.Cache
}

func NewCampaignService(repo CampaignRepo, images storage.ImageStore, logger *slog.Logger) *CampaignServiceImpl {
	return &CampaignServiceImpl{
		logger: logger,
		repo:   repo,
		images: images,
		cache:  gocache.New(listCacheTTL, 2*listCacheTTL),
	}
}

// Create validates the form, stores the campaign row, then pushes the
// new images to the host and records their metadata.
func (s *CampaignServiceImpl) Create(ctx context.Context, form *Form) (*types.Campaign, error) {
	l := s.logger.With(slog.String("method", "Create"))

	if errs := form.Validate(); errs != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrBadRequest, errs.Error())
	}

	c, err := s.repo.CreateCampaign(ctx, form)
	if err != nil {
		return nil, err
	}

	uploaded := s.uploadImages(ctx, c.ID, form.NewImages)
	if len(uploaded) > 0 {
		if err := s.repo.InsertImages(ctx, uploaded); err != nil {
			l.ErrorContext(ctx, "Failed to record uploaded images", slog.Any("error", err))
			return nil, err
		}
	}
	c.Images = uploaded

	s.cache.Delete(listCacheKey)
	l.InfoContext(ctx, "Campaign created",
		slog.String("campaignID", c.ID.String()),
		slog.Int("images", len(uploaded)))
	return c, nil
}

// Update validates and overwrites a campaign. Existing images absent
// from KeepImageIDs are removed from the host and the database before
// any new files are uploaded.
func (s *CampaignServiceImpl) Update(ctx context.Context, id uuid.UUID, form *Form) (*types.Campaign, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.String("campaignID", id.String()))

	if errs := form.Validate(); errs != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrBadRequest, errs.Error())
	}

	c, err := s.repo.UpdateCampaign(ctx, id, form)
	if err != nil {
		return nil, err
	}

	dropped, err := s.repo.ImagesNotIn(ctx, id, form.KeepImageIDs)
	if err != nil {
		return nil, err
	}
	for _, img := range dropped {
		if err := s.images.Delete(ctx, img.StorageID); err != nil {
			// The row still goes; a stray object on the host is
			// recoverable, a dangling URL in the UI is not.
			l.WarnContext(ctx, "Failed to delete image from host",
				slog.String("storageID", img.StorageID), slog.Any("error", err))
		}
	}
	if err := s.repo.DeleteImagesNotIn(ctx, id, form.KeepImageIDs); err != nil {
		return nil, err
	}

	uploaded := s.uploadImages(ctx, id, form.NewImages)
	if len(uploaded) > 0 {
		if err := s.repo.InsertImages(ctx, uploaded); err != nil {
			l.ErrorContext(ctx, "Failed to record uploaded images", slog.Any("error", err))
			return nil, err
		}
	}

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Images = images

	s.cache.Delete(listCacheKey)
	return c, nil
}

func (s *CampaignServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// List serves the public campaign listing through a short-lived cache.
func (s *CampaignServiceImpl) List(ctx context.Context) ([]types.Campaign, error) {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cached.([]types.Campaign), nil
	}

	campaigns, err := s.repo.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(listCacheKey, campaigns, gocache.DefaultExpiration)
	return campaigns, nil
}

// Delete removes the campaign, its image rows, and the hosted objects.
func (s *CampaignServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.String("campaignID", id.String()))

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		return err
	}
	for _, img := range images {
		if err := s.images.Delete(ctx, img.StorageID); err != nil {
			l.WarnContext(ctx, "Failed to delete image from host",
				slog.String("storageID", img.StorageID), slog.Any("error", err))
		}
	}

	s.cache.Delete(listCacheKey)
	l.InfoContext(ctx, "Campaign deleted", slog.Int("images", len(images)))
	return nil
}

// uploadImages pushes new files to the image host in parallel. A file
// that the host rejects is logged and skipped; the rest of the batch
// still lands.
func (s *CampaignServiceImpl) uploadImages(ctx context.Context, campaignID uuid.UUID, files []ImageUpload) []types.CampaignImage {
	if len(files) == 0 {
		return nil
	}
	l := s.logger.With(slog.String("method", "uploadImages"), slog.String("campaignID", campaignID.String()))

	var mu sync.Mutex
	var uploaded []types.CampaignImage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, file := range files {
		g.Go(func() error {
			key := imageKey()
			res, err := s.images.Upload(gctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), file.ContentType)
			if err != nil {
				metrics.Get().ImageUploadErrorTotal.Add(gctx, 1)
				l.WarnContext(gctx, "Image upload failed, skipping file",
					slog.String("filename", file.Filename), slog.Any("error", err))
				return nil
			}
			metrics.Get().ImageUploadsTotal.Add(gctx, 1,
				metric.WithAttributes(attribute.String("content_type", file.ContentType)))

			width, height := sniffDimensions(file.Data)
			mu.Lock()
			uploaded = append(uploaded, types.CampaignImage{
				CampaignID:  campaignID,
				StorageID:   res.StorageID,
				URL:         res.URL,
				AltText:     file.AltText,
				ContentType: file.ContentType,
				Width:       width,
				Height:      height,
			})
			mu.Unlock()
			return nil
		})
	}
	// Workers swallow upload errors, so Wait only synchronizes.
	_ = g.Wait()
	return uploaded
}

// imageKey builds the host object key: a "campaigns" folder prefix plus
// a timestamped random name.
func imageKey() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("campaigns/campaign_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// sniffDimensions reads the image header for width and height. Returns
// zeros when the bytes are not a decodable image.
func sniffDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
