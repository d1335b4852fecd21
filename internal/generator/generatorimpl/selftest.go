package generatorimpl

import (
	"context"
	"io"
	"net/http"

	"github.com/paul-minniti/XPoster/pkg/errors"
)

// TestConnection verifies a credential by listing models. Unlike Generate,
// the request is cancelled when the budget expires.
func (g *GeneratorImpl) TestConnection(ctx context.Context, credential string) error {
	if credential == "" {
		return errors.New(errors.KindConfig, "API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/models", nil)
	if err != nil {
		return errors.Wrap(err, errors.KindTransient, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := g.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.New(errors.KindTimeout, "connection test timed out")
		}
		return errors.Wrap(err, errors.KindTransient, "connection test failed")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		g.Logger.Info("Connection test succeeded", "status", resp.StatusCode)
		return nil
	}
	return classifyStatus(resp.StatusCode, body)
}
