package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/websapdev/ai-visibility/internal/models"
)

// UpsertSnapshot writes the snapshot keyed by (brand, engine, date). An
// existing row keeps its ID and has every other field replaced.
func (s *SQLStore) UpsertSnapshot(ctx context.Context, snapshot *models.VisibilitySnapshot) error {
	counts := snapshot.CompetitorShareOfVoice
	if counts == nil {
		counts = map[string]int{}
	}
	// json.Marshal sorts map keys, so equal counts serialize identically.
	encoded, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to encode competitor share of voice: %w", err)
	}

	id := snapshot.ID
	if id == "" {
		id = newID()
	}

	err = s.queryRow(ctx,
		`INSERT INTO visibility_snapshots (
			id, brand_id, ai_engine_id, snapshot_date, total_answers,
			brand_mention_count, competitor_mention_count, brand_share_of_voice, competitor_share_of_voice
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (brand_id, ai_engine_id, snapshot_date) DO UPDATE SET
			total_answers = excluded.total_answers,
			brand_mention_count = excluded.brand_mention_count,
			competitor_mention_count = excluded.competitor_mention_count,
			brand_share_of_voice = excluded.brand_share_of_voice,
			competitor_share_of_voice = excluded.competitor_share_of_voice
		RETURNING id`,
		id, snapshot.BrandID, snapshot.AiEngineID, toNanos(snapshot.Date), snapshot.TotalAnswers,
		snapshot.BrandMentionCount, snapshot.CompetitorMentionCount, snapshot.BrandShareOfVoice, string(encoded),
	).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// ListSnapshotsSince returns the brand's snapshots dated at or after since,
// joined with the engine display name, oldest first.
func (s *SQLStore) ListSnapshotsSince(ctx context.Context, brandID string, since time.Time) ([]models.VisibilitySnapshot, error) {
	rows, err := s.query(ctx,
		`SELECT v.id, v.brand_id, v.ai_engine_id, v.snapshot_date, v.total_answers,
		        v.brand_mention_count, v.competitor_mention_count, v.brand_share_of_voice,
		        v.competitor_share_of_voice, e.display_name
		 FROM visibility_snapshots v JOIN ai_engines e ON e.id = v.ai_engine_id
		 WHERE v.brand_id = ? AND v.snapshot_date >= ?
		 ORDER BY v.snapshot_date, e.created_at, e.id`, brandID, toNanos(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.VisibilitySnapshot
	for rows.Next() {
		var v models.VisibilitySnapshot
		var date int64
		var encoded string
		if err := rows.Scan(&v.ID, &v.BrandID, &v.AiEngineID, &date, &v.TotalAnswers,
			&v.BrandMentionCount, &v.CompetitorMentionCount, &v.BrandShareOfVoice,
			&encoded, &v.EngineDisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		v.Date = fromNanos(date)
		if err := json.Unmarshal([]byte(encoded), &v.CompetitorShareOfVoice); err != nil {
			return nil, fmt.Errorf("failed to decode competitor share of voice for snapshot %s: %w", v.ID, err)
		}
		snapshots = append(snapshots, v)
	}
	return snapshots, rows.Err()
}
