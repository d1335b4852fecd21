package generatorimpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/paul-minniti/XPoster/internal/domain"
	"github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/retry"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Generate runs the chat completion with the fixed retry policy: one retry
// after a fixed delay, only when the first failure is retryable. The retry
// attempt is final regardless of outcome.
func (g *GeneratorImpl) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if req.Credential == "" {
		return "", errors.New(errors.KindConfig,
			"API key not configured. Please set it via the settings.")
	}

	var reply string
	attempts := 0

	err := retry.Once(ctx, g.Logger, "chat_completion", retryDelay, func() error {
		attempts++
		r, callErr := g.complete(ctx, req)
		if callErr != nil {
			if attempts == 1 && errors.IsRetryable(callErr) {
				return callErr
			}
			return backoff.Permanent(callErr)
		}
		reply = r
		return nil
	})
	if err != nil {
		g.Logger.Error("Generation failed", "attempts", attempts, "error", err)
		return "", err
	}

	g.Logger.Info("Generation succeeded", "attempts", attempts, "reply_len", len(reply))
	return reply, nil
}

// complete races one request against the timeout. The loser of the race is
// abandoned: a late network result is discarded, never cancelled mid-flight.
func (g *GeneratorImpl) complete(ctx context.Context, req domain.GenerationRequest) (string, error) {
	systemPrompt := strings.TrimSpace(req.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	payload := chatCompletionRequest{
		Model: g.Config.OpenAI.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: `Generate a reply to this tweet: "` + req.PostText + `"`},
		},
	}

	type result struct {
		reply string
		err   error
	}
	resCh := make(chan result, 1)

	go func() {
		r, err := g.doCompletion(context.WithoutCancel(ctx), payload, req.Credential)
		resCh <- result{reply: r, err: err}
	}()

	select {
	case res := <-resCh:
		return res.reply, res.err
	case <-time.After(g.timeout):
		return "", &errors.Error{
			Kind:    errors.KindTimeout,
			Message: fmt.Sprintf("API request timed out after %s", g.timeout),
		}
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), errors.KindTransient, "generation cancelled")
	}
}

func (g *GeneratorImpl) doCompletion(ctx context.Context, payload chatCompletionRequest, credential string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, errors.KindTransient, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.KindTransient, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", &errors.Error{
			Kind:      errors.KindTransient,
			Message:   "API request failed",
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errors.Error{
			Kind:      errors.KindTransient,
			Message:   "failed to read API response",
			Retryable: true,
			Err:       err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", errors.Wrap(err, errors.KindMalformedResponse, "invalid API response structure")
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New(errors.KindMalformedResponse,
			"invalid API response structure: no valid choice found")
	}

	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	return stripOuterQuotes(reply), nil
}

func classifyStatus(status int, body []byte) error {
	detail := apiErrorMessage(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Newf(errors.KindAuth,
			"API authentication error (status %d): invalid API key or insufficient permissions", status)
	case status == http.StatusTooManyRequests:
		return errors.Newf(errors.KindRateLimited,
			"API rate limit exceeded (status %d): too many requests, try again later", status)
	default:
		msg := fmt.Sprintf("API request failed with status %d", status)
		if detail != "" {
			msg += ": " + detail
		}
		return &errors.Error{
			Kind:      errors.KindTransient,
			Message:   msg,
			Retryable: true,
		}
	}
}

func apiErrorMessage(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	if apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return apiErr.Message
}

// quotePairs are the outer wrappers models like to add around a reply.
var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'“': '”', // curly double
	'‘': '’', // curly single
}

// stripOuterQuotes removes exactly one matching pair of quote characters
// when it spans the whole string, then re-trims. Applied at most once.
func stripOuterQuotes(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	closing, ok := quotePairs[runes[0]]
	if !ok || runes[len(runes)-1] != closing {
		return s
	}
	return strings.TrimSpace(string(runes[1 : len(runes)-1]))
}
