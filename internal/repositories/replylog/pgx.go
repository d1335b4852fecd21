package replylog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul-minniti/XPoster/internal/domain"
	"github.com/paul-minniti/XPoster/internal/repositories"
	"github.com/paul-minniti/XPoster/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

type Pgx struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pg *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pg:     pg,
		logger: logger.WithComponent("ReplyLogRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

// Create records the outcome of one reply attempt
func (p *Pgx) Create(ctx context.Context, entry domain.ReplyLogEntry) error {
	query, args, err := repositories.SqBuilder.
		Insert("reply_log").
		Columns("permalink", "post_text", "reply_text", "outcome", "created_at").
		Values(entry.Permalink, entry.PostText, entry.ReplyText, entry.Outcome, time.Now()).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pg.Exec(ctx, query, args...)
	return err
}

// GetLatestByPermalink returns the most recent entries for a post, limited by count
func (p *Pgx) GetLatestByPermalink(ctx context.Context, permalink string, count int) ([]*domain.ReplyLogEntry, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "permalink", "post_text", "reply_text", "outcome", "created_at").
		From("reply_log").
		Where(sq.Eq{"permalink": permalink}).
		OrderBy("created_at DESC").
		Limit(uint64(count)).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ReplyLogEntry
	for rows.Next() {
		var entry domain.ReplyLogEntry
		if err := rows.Scan(&entry.ID, &entry.Permalink, &entry.PostText, &entry.ReplyText, &entry.Outcome, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// CleanupOldRecords deletes records older than the specified duration
func (p *Pgx) CleanupOldRecords(ctx context.Context, olderThan string) (int64, error) {
	cutoffTime := time.Now().Add(-parseDuration(olderThan))

	query, args, err := repositories.SqBuilder.
		Delete("reply_log").
		Where(sq.Lt{"created_at": cutoffTime}).
		ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func parseDuration(duration string) time.Duration {
	d, err := time.ParseDuration(duration)
	if err != nil {
		// Default to 30 days if parsing fails
		return 30 * 24 * time.Hour
	}
	return d
}
