package models

import "time"

// EntityType marks whether a mention refers to the tracked brand or a competitor
type EntityType string

const (
	EntityBrand      EntityType = "BRAND"
	EntityCompetitor EntityType = "COMPETITOR"
)

// Sentiment is the keyword-based tone of the sentence naming an entity
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Brand is a company whose visibility in AI answers is tracked
type Brand struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PrimaryDomain string    `json:"primary_domain"`
	CreatedAt     time.Time `json:"created_at"`
}

// Competitor belongs to exactly one brand
type Competitor struct {
	ID            string    `json:"id"`
	BrandID       string    `json:"brand_id"`
	Name          string    `json:"name"`
	PrimaryDomain string    `json:"primary_domain,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AiEngine is a globally registered answer source ("ChatGPT", "Perplexity", ...)
type AiEngine struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackedPrompt is a question a brand wants monitored across engines
type TrackedPrompt struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brand_id"`
	Text      string    `json:"text"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AiAnswer is the immutable record of one fetch for a (prompt, engine) pair
type AiAnswer struct {
	ID              string    `json:"id"`
	BrandID         string    `json:"brand_id"`
	TrackedPromptID string    `json:"tracked_prompt_id"`
	AiEngineID      string    `json:"ai_engine_id"`
	RawAnswer       string    `json:"raw_answer"`
	AskedAt         time.Time `json:"asked_at"`
	Mentions        []Mention `json:"mentions,omitempty"`
}

// Mention is a brand or competitor occurrence detected in an answer
type Mention struct {
	ID               string     `json:"id,omitempty"`
	AiAnswerID       string     `json:"ai_answer_id,omitempty"`
	EntityType       EntityType `json:"entity_type"`
	EntityName       string     `json:"entity_name"`
	Sentiment        Sentiment  `json:"sentiment"`
	IsRecommendation bool       `json:"is_recommendation"`
}

// VisibilitySnapshot is the daily rollup for one (brand, engine, day).
// Date is midnight of the day in the configured time zone.
type VisibilitySnapshot struct {
	ID                     string         `json:"id"`
	BrandID                string         `json:"brand_id"`
	AiEngineID             string         `json:"ai_engine_id"`
	Date                   time.Time      `json:"date"`
	TotalAnswers           int            `json:"total_answers"`
	BrandMentionCount      int            `json:"brand_mention_count"`
	CompetitorMentionCount int            `json:"competitor_mention_count"`
	BrandShareOfVoice      float64        `json:"brand_share_of_voice"`
	CompetitorShareOfVoice map[string]int `json:"competitor_share_of_voice"`

	// EngineDisplayName is populated by reads that join the engine registry
	EngineDisplayName string `json:"engine_display_name,omitempty"`
}

// PromptActivity is an active prompt with its lifetime answer count
type PromptActivity struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AnswerCount int    `json:"answerCount"`
}

// Headline carries the top-line overview figures
type Headline struct {
	OverallSov         int `json:"overallSov"`
	TotalAnswers       int `json:"totalAnswers"`
	CompetitorsTracked int `json:"competitorsTracked"`
}

// EngineSov is one bar of the per-engine share-of-voice chart
type EngineSov struct {
	Name string  `json:"name"`
	Sov  float64 `json:"sov"`
}

// TrendPoint is the brand share of voice on one calendar date
type TrendPoint struct {
	Date     string  `json:"date"`
	BrandSov float64 `json:"brandSov"`
}

// Overview is the visibility dashboard payload for a brand
type Overview struct {
	Headline    Headline         `json:"headline"`
	EngineChart []EngineSov      `json:"engineChart"`
	Trend       []TrendPoint     `json:"trend"`
	Prompts     []PromptActivity `json:"prompts"`
}

// PollResult summarizes one poll invocation
type PollResult struct {
	BrandID       string        `json:"brand_id"`
	NewAnswers    int           `json:"new_answers"`
	FailedFetches int           `json:"failed_fetches"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// BrandDigest is one brand's section in a scheduled digest
type BrandDigest struct {
	BrandID    string      `json:"brand_id"`
	BrandName  string      `json:"brand_name"`
	NewAnswers int         `json:"new_answers"`
	Headline   Headline    `json:"headline"`
	EngineSov  []EngineSov `json:"engine_sov"`
	Error      string      `json:"error,omitempty"`
}

// Report is a periodic visibility digest sent to notification channels
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Period      string        `json:"period"`
	Brands      []BrandDigest `json:"brands"`
}
