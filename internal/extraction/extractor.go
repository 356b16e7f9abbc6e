// Package extraction finds brand and competitor mentions in AI answers and
// assigns each a keyword-based sentiment.
package extraction

import (
	"strings"

	"github.com/websapdev/ai-visibility/internal/models"
)

// Checked in this order; a positive hit wins over a negative one.
var (
	positiveKeywords = []string{"love", "excellent", "leading", "top choice", "robust"}
	negativeKeywords = []string{"expensive", "slow", "hard", "bad"}
)

// InferSentiment classifies the first sentence of text that names entity.
// When no sentence names it, the whole text is used.
func InferSentiment(text, entity string) models.Sentiment {
	lowerText := strings.ToLower(text)
	lowerEntity := strings.ToLower(entity)

	sentence := lowerText
	for _, s := range strings.Split(lowerText, ".") {
		if strings.Contains(s, lowerEntity) {
			sentence = s
			break
		}
	}

	if containsAny(sentence, positiveKeywords) {
		return models.SentimentPositive
	}
	if containsAny(sentence, negativeKeywords) {
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

// ExtractMentions returns a mention draft for the brand and for every
// competitor whose name occurs in rawAnswer, case-insensitively. The brand
// comes first, then competitors in the order given.
//
// The brand counts as recommended on "recommend <brand>" or on the literal
// "top choice" anywhere in the raw answer (case-sensitive). Competitors only
// get the "recommend <name>" check.
func ExtractMentions(rawAnswer, brandName string, competitorNames []string) []models.Mention {
	var mentions []models.Mention
	lowerAnswer := strings.ToLower(rawAnswer)

	if strings.Contains(lowerAnswer, strings.ToLower(brandName)) {
		mentions = append(mentions, models.Mention{
			EntityType: models.EntityBrand,
			EntityName: brandName,
			Sentiment:  InferSentiment(rawAnswer, brandName),
			IsRecommendation: strings.Contains(lowerAnswer, "recommend "+strings.ToLower(brandName)) ||
				strings.Contains(rawAnswer, "top choice"),
		})
	}

	for _, comp := range competitorNames {
		if !strings.Contains(lowerAnswer, strings.ToLower(comp)) {
			continue
		}
		mentions = append(mentions, models.Mention{
			EntityType:       models.EntityCompetitor,
			EntityName:       comp,
			Sentiment:        InferSentiment(rawAnswer, comp),
			IsRecommendation: strings.Contains(lowerAnswer, "recommend "+strings.ToLower(comp)),
		})
	}

	return mentions
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
