package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
)

// ClassifyError maps a go-openai client error onto the domain taxonomy:
// rejected credentials become domain.ErrAuthentication, everything else a
// *domain.ProviderError whose Kind tells rate limits and timeouts apart.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ProviderError{Provider: provider, Kind: domain.ProviderTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.ProviderError{Provider: provider, Kind: domain.ProviderTimeout, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrAuthentication, err)
	case http.StatusTooManyRequests:
		return &domain.ProviderError{Provider: provider, Kind: domain.ProviderRateLimited, StatusCode: status, Err: err}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &domain.ProviderError{Provider: provider, Kind: domain.ProviderTimeout, StatusCode: status, Err: err}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &domain.ProviderError{Provider: provider, Kind: domain.ProviderMalformed, StatusCode: status, Err: err}
	}

	return &domain.ProviderError{Provider: provider, Kind: domain.ProviderUpstream, StatusCode: status, Err: err}
}
