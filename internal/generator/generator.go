package generator

import (
	"context"

	"github.com/paul-minniti/XPoster/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=generator.go -destination=mocks/mock.go -package=mocks

// Client talks to the remote text-generation service. Generate returns the
// normalized reply text or a classified error (pkg/errors kinds); the retry
// policy is internal: at most one retry, and only for failures marked
// retryable on the first attempt.
type Client interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)

	// TestConnection validates a credential against the models listing
	// endpoint. It is independent of the generation pipeline.
	TestConnection(ctx context.Context, credential string) error
}
