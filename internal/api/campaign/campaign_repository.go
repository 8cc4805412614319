package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

var _ CampaignRepo = (*PostgresCampaignRepo)(nil)

// CampaignRepo is the persistence boundary for campaigns and their
// image rows. Image bytes never pass through here; only metadata and
// host keys do.
type CampaignRepo interface {
	CreateCampaign(ctx context.Context, form *Form) (*types.Campaign, error)
	UpdateCampaign(ctx context.Context, id uuid.UUID, form *Form) (*types.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*types.Campaign, error)
	ListCampaigns(ctx context.Context) ([]types.Campaign, error)
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
	ListImages(ctx context.Context, campaignID uuid.UUID) ([]types.CampaignImage, error)
	ImagesNotIn(ctx context.Context, campaignID uuid.UUID, keep []uuid.UUID) ([]types.CampaignImage, error)
	DeleteImagesNotIn(ctx context.Context, campaignID uuid.UUID, keep []uuid.UUID) error
	InsertImages(ctx context.Context, images []types.CampaignImage) error
}

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresCampaignRepo struct {
	logger  *slog.Logger
	db      DB
	timeout time.Duration
}

func NewPostgresCampaignRepo(db DB, timeout time.Duration, logger *slog.Logger) *PostgresCampaignRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresCampaignRepo{
		logger:  logger,
		db:      db,
		timeout: timeout,
	}
}

func (r *PostgresCampaignRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func storeErr(ctx context.Context, op string, err error) error {
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: store timed out: %w", op, types.ErrStoreUnavailable)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: store unreachable: %w", op, types.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const campaignColumns = `id, title, description, goal, raised, category, status, start_date, end_date, created_at, updated_at`

func scanCampaign(row pgx.Row, c *types.Campaign) error {
	return row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Goal,
		&c.Raised,
		&c.Category,
		&c.Status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// CreateCampaign inserts a new campaign row.
func (r *PostgresCampaignRepo) CreateCampaign(ctx context.Context, form *Form) (*types.Campaign, error) {
	ctx, span := otel.Tracer("CampaignRepo").Start(ctx, "CreateCampaign", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "campaigns"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateCampaign"))
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c types.Campaign
	query := `
        INSERT INTO campaigns (title, description, goal, raised, category, status, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + campaignColumns

	err := scanCampaign(r.db.QueryRow(ctx, query,
		form.Title, form.Description, form.Goal, form.Raised,
		form.Category, form.Status, form.StartDate, form.EndDate), &c)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert campaign", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, storeErr(ctx, "create campaign", err)
	}

	l.InfoContext(ctx, "Campaign created", slog.String("campaignID", c.ID.String()))
	span.SetStatus(codes.Ok, "Campaign created")
	return &c, nil
}

// UpdateCampaign overwrites the editable fields of an existing campaign.
func (r *PostgresCampaignRepo) UpdateCampaign(ctx context.Context, id uuid.UUID, form *Form) (*types.Campaign, error) {
	ctx, span := otel.Tracer("CampaignRepo").Start(ctx, "UpdateCampaign", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "campaigns"),
		attribute.String("db.campaign.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateCampaign"), slog.String("campaignID", id.String()))
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c types.Campaign
	query := `
        UPDATE campaigns
        SET title = $1, description = $2, goal = $3, raised = $4,
            category = $5, status = $6, start_date = $7, end_date = $8,
            updated_at = now()
        WHERE id = $9
        RETURNING ` + campaignColumns

	err := scanCampaign(r.db.QueryRow(ctx, query,
		form.Title, form.Description, form.Goal, form.Raised,
		form.Category, form.Status, form.StartDate, form.EndDate, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Campaign not found")
			return nil, types.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to update campaign", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, storeErr(ctx, "update campaign", err)
	}

	span.SetStatus(codes.Ok, "Campaign updated")
	return &c, nil
}

// GetCampaign fetches one campaign with its images attached.
func (r *PostgresCampaignRepo) GetCampaign(ctx context.Context, id uuid.UUID) (*types.Campaign, error) {
	ctx, span := otel.Tracer("CampaignRepo").Start(ctx, "GetCampaign", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "campaigns"),
		attribute.String("db.campaign.id", id.String()),
	))
	defer span.End()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c types.Campaign
	err := scanCampaign(r.db.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Campaign not found")
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, storeErr(ctx, "get campaign", err)
	}

	images, err := r.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Images = images

	span.SetStatus(codes.Ok, "Campaign fetched")
	return &c, nil
}

// ListCampaigns returns all campaigns, newest first, images attached.
func (r *PostgresCampaignRepo) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	ctx, span := otel.Tracer("CampaignRepo").Start(ctx, "ListCampaigns", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "campaigns"),
	))
	defer span.End()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, storeErr(ctx, "list campaigns", err)
	}
	defer rows.Close()

	var campaigns []types.Campaign
	var ids []uuid.UUID
	for rows.Next() {
		var c types.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			span.RecordError(err)
			return nil, storeErr(ctx, "list campaigns", err)
		}
		campaigns = append(campaigns, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storeErr(ctx, "list campaigns", err)
	}
	if len(campaigns) == 0 {
		span.SetStatus(codes.Ok, "No campaigns")
		return campaigns, nil
	}

	imageRows, err := r.db.Query(ctx,
		`SELECT id, campaign_id, storage_id, url, alt_text, content_type, width, height, created_at
         FROM campaign_images WHERE campaign_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		span.RecordError(err)
		return nil, storeErr(ctx, "list campaign images", err)
	}
	defer imageRows.Close()

	byCampaign := make(map[uuid.UUID][]types.CampaignImage)
	for imageRows.Next() {
		var img types.CampaignImage
		if err := scanImage(imageRows, &img); err != nil {
			span.RecordError(err)
			return nil, storeErr(ctx, "list campaign images", err)
		}
		byCampaign[img.CampaignID] = append(byCampaign[img.CampaignID], img)
	}
	if err := imageRows.Err(); err != nil {
		span.RecordError(err)
		return nil, storeErr(ctx, "list campaign images", err)
	}
	for i := range campaigns {
		campaigns[i].Images = byCampaign[campaigns[i].ID]
	}

	span.SetAttributes(attribute.Int("db.campaigns.count", len(campaigns)))
	span.SetStatus(codes.Ok, "Campaigns listed")
	return campaigns, nil
}

// DeleteCampaign removes a campaign row; image rows cascade.
func (r *PostgresCampaignRepo) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CampaignRepo").Start(ctx, "DeleteCampaign", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "campaigns"),
		attribute.String("db.campaign.id", id.String()),
	))
	defer span.End()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return storeErr(ctx, "delete campaign", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Campaign not found")
		return types.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Campaign deleted")
	return nil
}

func scanImage(row pgx.Row, img *types.CampaignImage) error {
	return row.Scan(
		&img.ID,
		&img.CampaignID,
		&img.StorageID,
		&img.URL,
		&img.AltText,
		&img.ContentType,
		&img.Width,
		&img.Height,
		&img.CreatedAt,
	)
}

// ListImages returns every image row for a campaign.
func (r *PostgresCampaignRepo) ListImages(ctx context.Context, campaignID uuid.UUID) ([]types.CampaignImage, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT id, campaign_id, storage_id, url, alt_text, content_type, width, height, created_at
         FROM campaign_images WHERE campaign_id = $1 ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, storeErr(ctx, "list images", err)
	}
	defer rows.Close()

	var images []types.CampaignImage
	for rows.Next() {
		var img types.CampaignImage
		if err := scanImage(rows, &img); err != nil {
			return nil, storeErr(ctx, "list images", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list images", err)
	}
	return images, nil
}

// ImagesNotIn returns the image rows of a campaign that are NOT in the
// keep set. With an empty keep set every image row qualifies.
func (r *PostgresCampaignRepo) ImagesNotIn(ctx context.Context, campaignID uuid.UUID, keep []uuid.UUID) ([]types.CampaignImage, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT id, campaign_id, storage_id, url, alt_text, content_type, width, height, created_at
              FROM campaign_images WHERE campaign_id = $1`
	args := []any{campaignID}
	if len(keep) > 0 {
		query += ` AND NOT (id = ANY($2))`
		args = append(args, keep)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(ctx, "images not in", err)
	}
	defer rows.Close()

	var images []types.CampaignImage
	for rows.Next() {
		var img types.CampaignImage
		if err := scanImage(rows, &img); err != nil {
			return nil, storeErr(ctx, "images not in", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "images not in", err)
	}
	return images, nil
}

// DeleteImagesNotIn removes a campaign's image rows outside the keep set.
func (r *PostgresCampaignRepo) DeleteImagesNotIn(ctx context.Context, campaignID uuid.UUID, keep []uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM campaign_images WHERE campaign_id = $1`
	args := []any{campaignID}
	if len(keep) > 0 {
		query += ` AND NOT (id = ANY($2))`
		args = append(args, keep)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return storeErr(ctx, "delete images", err)
	}
	return nil
}

// InsertImages stores metadata rows for freshly uploaded images.
func (r *PostgresCampaignRepo) InsertImages(ctx context.Context, images []types.CampaignImage) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	for _, img := range images {
		_, err := r.db.Exec(ctx,
			`INSERT INTO campaign_images (campaign_id, storage_id, url, alt_text, content_type, width, height)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			img.CampaignID, img.StorageID, img.URL, img.AltText, img.ContentType, img.Width, img.Height)
		if err != nil {
			return storeErr(ctx, "insert image", err)
		}
	}
	return nil
}
