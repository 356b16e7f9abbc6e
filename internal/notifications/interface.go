package notifications

import (
	"context"

	"github.com/websapdev/ai-visibility/internal/models"
)

// NotificationInterface defines the contract for digest delivery
type NotificationInterface interface {
	SendReport(ctx context.Context, report *models.Report) error
}
