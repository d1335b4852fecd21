package replylog

import (
	"context"

	"github.com/paul-minniti/XPoster/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=replylog.go -destination=mocks/mock.go
type Repository interface {
	// Create records the outcome of one reply attempt
	Create(ctx context.Context, entry domain.ReplyLogEntry) error

	// GetLatestByPermalink returns the most recent entries for a post, limited by count
	GetLatestByPermalink(ctx context.Context, permalink string, count int) ([]*domain.ReplyLogEntry, error)

	// CleanupOldRecords deletes records older than the specified duration
	CleanupOldRecords(ctx context.Context, olderThan string) (int64, error)
}
