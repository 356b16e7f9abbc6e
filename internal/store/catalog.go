package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/websapdev/ai-visibility/internal/models"
)

func newID() string {
	return uuid.NewString()
}

func stampCreated(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = newID()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
}

// CreateBrand inserts a brand, assigning an ID when empty.
func (s *SQLStore) CreateBrand(ctx context.Context, brand *models.Brand) error {
	stampCreated(&brand.ID, &brand.CreatedAt)
	_, err := s.exec(ctx,
		`INSERT INTO brands (id, name, primary_domain, created_at) VALUES (?, ?, ?, ?)`,
		brand.ID, brand.Name, brand.PrimaryDomain, toNanos(brand.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create brand: %w", err)
	}
	return nil
}

// GetBrand returns ErrNotFound when no brand has the given ID.
func (s *SQLStore) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	var b models.Brand
	var created int64
	err := s.queryRow(ctx,
		`SELECT id, name, primary_domain, created_at FROM brands WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.PrimaryDomain, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("brand %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load brand %s: %w", id, err)
	}
	b.CreatedAt = fromNanos(created)
	return &b, nil
}

func (s *SQLStore) ListBrands(ctx context.Context) ([]models.Brand, error) {
	rows, err := s.query(ctx,
		`SELECT id, name, primary_domain, created_at FROM brands ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var b models.Brand
		var created int64
		if err := rows.Scan(&b.ID, &b.Name, &b.PrimaryDomain, &created); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		b.CreatedAt = fromNanos(created)
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (s *SQLStore) CreateCompetitor(ctx context.Context, competitor *models.Competitor) error {
	stampCreated(&competitor.ID, &competitor.CreatedAt)
	_, err := s.exec(ctx,
		`INSERT INTO competitors (id, brand_id, name, primary_domain, created_at) VALUES (?, ?, ?, ?, ?)`,
		competitor.ID, competitor.BrandID, competitor.Name, competitor.PrimaryDomain, toNanos(competitor.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create competitor: %w", err)
	}
	return nil
}

// ListCompetitors returns a brand's competitors in creation order.
func (s *SQLStore) ListCompetitors(ctx context.Context, brandID string) ([]models.Competitor, error) {
	rows, err := s.query(ctx,
		`SELECT id, brand_id, name, primary_domain, created_at FROM competitors
		 WHERE brand_id = ? ORDER BY created_at, id`, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}
	defer rows.Close()

	var competitors []models.Competitor
	for rows.Next() {
		var c models.Competitor
		var created int64
		if err := rows.Scan(&c.ID, &c.BrandID, &c.Name, &c.PrimaryDomain, &created); err != nil {
			return nil, fmt.Errorf("failed to scan competitor: %w", err)
		}
		c.CreatedAt = fromNanos(created)
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

func (s *SQLStore) CountCompetitors(ctx context.Context, brandID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM competitors WHERE brand_id = ?`, brandID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count competitors: %w", err)
	}
	return n, nil
}

func (s *SQLStore) CreatePrompt(ctx context.Context, prompt *models.TrackedPrompt) error {
	stampCreated(&prompt.ID, &prompt.CreatedAt)
	_, err := s.exec(ctx,
		`INSERT INTO tracked_prompts (id, brand_id, text, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		prompt.ID, prompt.BrandID, prompt.Text, prompt.IsActive, toNanos(prompt.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	return nil
}

// ListActivePrompts returns the brand's prompts with is_active set, in creation order.
func (s *SQLStore) ListActivePrompts(ctx context.Context, brandID string) ([]models.TrackedPrompt, error) {
	rows, err := s.query(ctx,
		`SELECT id, brand_id, text, is_active, created_at FROM tracked_prompts
		 WHERE brand_id = ? AND is_active = TRUE ORDER BY created_at, id`, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.TrackedPrompt
	for rows.Next() {
		var p models.TrackedPrompt
		var created int64
		if err := rows.Scan(&p.ID, &p.BrandID, &p.Text, &p.IsActive, &created); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		p.CreatedAt = fromNanos(created)
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// UpsertEngine registers an engine by slug. An existing slug keeps its ID
// and gets the new display name; engine.ID is set to the stored ID.
func (s *SQLStore) UpsertEngine(ctx context.Context, engine *models.AiEngine) error {
	stampCreated(&engine.ID, &engine.CreatedAt)
	err := s.queryRow(ctx,
		`INSERT INTO ai_engines (id, slug, display_name, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET display_name = excluded.display_name
		 RETURNING id`,
		engine.ID, engine.Slug, engine.DisplayName, toNanos(engine.CreatedAt)).Scan(&engine.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert engine %s: %w", engine.Slug, err)
	}
	return nil
}

// ListEngines returns the whole engine registry in registration order.
func (s *SQLStore) ListEngines(ctx context.Context) ([]models.AiEngine, error) {
	rows, err := s.query(ctx,
		`SELECT id, slug, display_name, created_at FROM ai_engines ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list engines: %w", err)
	}
	defer rows.Close()

	var engines []models.AiEngine
	for rows.Next() {
		var e models.AiEngine
		var created int64
		if err := rows.Scan(&e.ID, &e.Slug, &e.DisplayName, &created); err != nil {
			return nil, fmt.Errorf("failed to scan engine: %w", err)
		}
		e.CreatedAt = fromNanos(created)
		engines = append(engines, e)
	}
	return engines, rows.Err()
}
