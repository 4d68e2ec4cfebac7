package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/bettertactics/internal/apperror"
)

// Fetch streams the compressed puzzle corpus from sourceURL, retrying
// transport errors with exponential backoff. The caller owns the
// returned body and must close it.
func Fetch(ctx context.Context, client *http.Client, sourceURL string) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var body io.ReadCloser

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "bettertactics-importer/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return fmt.Errorf("server error fetching puzzle corpus: %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return backoff.Permanent(fmt.Errorf("unexpected status fetching puzzle corpus: %s", resp.Status))
		}

		body = resp.Body
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 5 * time.Minute

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, apperror.ImportFailure("failed to fetch puzzle corpus", err)
	}

	return body, nil
}
