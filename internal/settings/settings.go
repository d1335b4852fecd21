// Package settings stores the user's API credential and system prompt in the
// settings table. The credential is base64-obfuscated at rest; this hides it
// from casual inspection only and is not encryption.
package settings

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	settingsrepo "github.com/paul-minniti/XPoster/internal/repositories/settings"
	apperrors "github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const (
	KeyAPIKey       = "userApiKey"
	KeySystemPrompt = "userSystemPrompt"
)

// apiKeyPattern accepts both classic and project-scoped key formats.
var apiKeyPattern = regexp.MustCompile(`^sk-(proj-)?[a-zA-Z0-9_-]{40,}$`)

type UserSettings struct {
	APIKey       string
	SystemPrompt string
}

type Opts struct {
	fx.In

	Repo   settingsrepo.Repository
	Logger logger.Logger
}

type Service struct {
	repo   settingsrepo.Repository
	logger logger.Logger
}

func New(opts Opts) *Service {
	return &Service{
		repo:   opts.Repo,
		logger: opts.Logger.WithComponent("Settings"),
	}
}

// ValidateAPIKeyFormat checks shape only; it does not prove the key works.
func ValidateAPIKeyFormat(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.New(apperrors.KindConfig, "API key is empty")
	}
	if !apiKeyPattern.MatchString(key) {
		return apperrors.New(apperrors.KindConfig, "API key format is invalid")
	}
	return nil
}

// Load returns the stored settings. A missing key resolves to the zero value,
// and a corrupt stored credential resolves to empty rather than an error so
// the user can recover by re-entering it.
func (s *Service) Load(ctx context.Context) (UserSettings, error) {
	var out UserSettings

	encoded, err := s.repo.Get(ctx, KeyAPIKey)
	switch {
	case err == nil:
		decoded, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil {
			s.logger.Warn("Stored API key is corrupt, treating as unset", "error", decErr)
		} else {
			out.APIKey = string(decoded)
		}
	case errors.Is(err, settingsrepo.ErrNotFound):
		// unset
	default:
		return UserSettings{}, err
	}

	prompt, err := s.repo.Get(ctx, KeySystemPrompt)
	switch {
	case err == nil:
		out.SystemPrompt = prompt
	case errors.Is(err, settingsrepo.ErrNotFound):
		// unset
	default:
		return UserSettings{}, err
	}

	return out, nil
}

// SaveAPIKey validates and stores the credential. An empty key clears it.
func (s *Service) SaveAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.repo.Delete(ctx, KeyAPIKey)
	}
	if err := ValidateAPIKeyFormat(key); err != nil {
		return err
	}
	return s.repo.Set(ctx, KeyAPIKey, base64.StdEncoding.EncodeToString([]byte(key)))
}

// SaveSystemPrompt stores the prompt verbatim. An empty prompt clears it.
func (s *Service) SaveSystemPrompt(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return s.repo.Delete(ctx, KeySystemPrompt)
	}
	return s.repo.Set(ctx, KeySystemPrompt, prompt)
}
