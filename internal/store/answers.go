package store

import (
	"context"
	"fmt"
	"time"

	"github.com/websapdev/ai-visibility/internal/models"
)

// CreateAnswer inserts the answer and its mentions in one transaction, so a
// mention never outlives a failed answer insert. IDs are assigned in place.
func (s *SQLStore) CreateAnswer(ctx context.Context, answer *models.AiAnswer) error {
	if answer.ID == "" {
		answer.ID = newID()
	}
	if answer.AskedAt.IsZero() {
		answer.AskedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin answer transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO ai_answers (id, brand_id, tracked_prompt_id, ai_engine_id, raw_answer, asked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		answer.ID, answer.BrandID, answer.TrackedPromptID, answer.AiEngineID, answer.RawAnswer, toNanos(answer.AskedAt)); err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	insertMention := s.rebind(
		`INSERT INTO mentions (id, ai_answer_id, position, entity_type, entity_name, sentiment, is_recommendation)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i := range answer.Mentions {
		m := &answer.Mentions[i]
		if m.ID == "" {
			m.ID = newID()
		}
		m.AiAnswerID = answer.ID
		if _, err := tx.ExecContext(ctx, insertMention,
			m.ID, m.AiAnswerID, i, string(m.EntityType), m.EntityName, string(m.Sentiment), m.IsRecommendation); err != nil {
			return fmt.Errorf("failed to insert mention %s: %w", m.EntityName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit answer: %w", err)
	}
	return nil
}

// ListAnswersSince loads the brand's answers from one engine asked at or
// after since, with their mentions in extraction order.
func (s *SQLStore) ListAnswersSince(ctx context.Context, brandID, engineID string, since time.Time) ([]models.AiAnswer, error) {
	rows, err := s.query(ctx,
		`SELECT id, brand_id, tracked_prompt_id, ai_engine_id, raw_answer, asked_at FROM ai_answers
		 WHERE brand_id = ? AND ai_engine_id = ? AND asked_at >= ?
		 ORDER BY asked_at, id`, brandID, engineID, toNanos(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	var answers []models.AiAnswer
	index := make(map[string]int)
	for rows.Next() {
		var a models.AiAnswer
		var asked int64
		if err := rows.Scan(&a.ID, &a.BrandID, &a.TrackedPromptID, &a.AiEngineID, &a.RawAnswer, &asked); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		a.AskedAt = fromNanos(asked)
		index[a.ID] = len(answers)
		answers = append(answers, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	if len(answers) == 0 {
		return nil, nil
	}

	mrows, err := s.query(ctx,
		`SELECT m.id, m.ai_answer_id, m.entity_type, m.entity_name, m.sentiment, m.is_recommendation
		 FROM mentions m JOIN ai_answers a ON a.id = m.ai_answer_id
		 WHERE a.brand_id = ? AND a.ai_engine_id = ? AND a.asked_at >= ?
		 ORDER BY m.ai_answer_id, m.position`, brandID, engineID, toNanos(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var m models.Mention
		var entityType, sentiment string
		if err := mrows.Scan(&m.ID, &m.AiAnswerID, &entityType, &m.EntityName, &sentiment, &m.IsRecommendation); err != nil {
			return nil, fmt.Errorf("failed to scan mention: %w", err)
		}
		m.EntityType = models.EntityType(entityType)
		m.Sentiment = models.Sentiment(sentiment)

		// Answers written after the first query are not in the index.
		if i, ok := index[m.AiAnswerID]; ok {
			answers[i].Mentions = append(answers[i].Mentions, m)
		}
	}
	return answers, mrows.Err()
}

// ListPromptActivity returns the brand's active prompts with their lifetime
// answer counts.
func (s *SQLStore) ListPromptActivity(ctx context.Context, brandID string) ([]models.PromptActivity, error) {
	rows, err := s.query(ctx,
		`SELECT p.id, p.text, COUNT(a.id)
		 FROM tracked_prompts p LEFT JOIN ai_answers a ON a.tracked_prompt_id = p.id
		 WHERE p.brand_id = ? AND p.is_active = TRUE
		 GROUP BY p.id, p.text, p.created_at
		 ORDER BY p.created_at, p.id`, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt activity: %w", err)
	}
	defer rows.Close()

	var prompts []models.PromptActivity
	for rows.Next() {
		var p models.PromptActivity
		if err := rows.Scan(&p.ID, &p.Text, &p.AnswerCount); err != nil {
			return nil, fmt.Errorf("failed to scan prompt activity: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}
