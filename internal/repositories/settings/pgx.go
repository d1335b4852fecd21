package settings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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
		logger: logger.WithComponent("SettingsRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

// Get returns the stored value for a key, or ErrNotFound
func (p *Pgx) Get(ctx context.Context, key string) (string, error) {
	query, args, err := repositories.SqBuilder.
		Select("value").
		From("settings").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", repositories.ErrBadQuery
	}

	var value string
	err = p.pg.QueryRow(ctx, query, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores a value for a key, overwriting any previous value
func (p *Pgx) Set(ctx context.Context, key, value string) error {
	query, args, err := repositories.SqBuilder.
		Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pg.Exec(ctx, query, args...)
	return err
}

// Delete removes a key; deleting a missing key is not an error
func (p *Pgx) Delete(ctx context.Context, key string) error {
	query, args, err := repositories.SqBuilder.
		Delete("settings").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pg.Exec(ctx, query, args...)
	return err
}
