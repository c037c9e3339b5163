package signing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/hubcap/pkg/apperr"
)

// Signer produces a signed artifact from an unsigned one
type Signer interface {
	// Sign submits the unsigned artifact and returns the signed artifact
	// stream with its size in bytes. The caller owns closing the stream.
	Sign(ctx context.Context, r io.Reader) (io.ReadCloser, int64, error)
}

// HTTPSigner calls a signing service over HTTP
type HTTPSigner struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSigner creates a signer client with a bounded timeout
func NewHTTPSigner(endpoint string, timeout time.Duration) *HTTPSigner {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSigner{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Sign POSTs the artifact to the signing service and streams back the signed
// artifact. Any transport or non-200 outcome is a retryable dependency failure.
func (s *HTTPSigner) Sign(ctx context.Context, r io.Reader) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, r)
	if err != nil {
		return nil, 0, apperr.Dependency(err, "building signing request")
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, apperr.Dependency(err, "signing service unreachable")
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, apperr.Dependency(
			fmt.Errorf("signing service returned %d", resp.StatusCode),
			"signing failed",
		)
	}

	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, 0, apperr.Dependency(
			fmt.Errorf("signing service omitted Content-Length"),
			"signed artifact size unknown",
		)
	}

	return resp.Body, resp.ContentLength, nil
}
