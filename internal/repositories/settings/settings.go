package settings

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("setting not found")

//go:generate go run go.uber.org/mock/mockgen -source=settings.go -destination=mocks/mock.go
type Repository interface {
	// Get returns the stored value for a key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value for a key, overwriting any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
