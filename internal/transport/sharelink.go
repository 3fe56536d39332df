package transport

import (
	"fmt"
	"net/url"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/pkg/models"
)

// BuildShareLink appends the save code parameters to baseURL as a plain query
// string. Query keys already on baseURL are kept unless they collide with ours.
func BuildShareLink(states map[string]models.CardState, cat *models.Catalog, meta Metadata, baseURL string) (string, []codec.Skip, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidBaseURL, baseURL)
	}

	params, skipped := buildParams(states, cat, meta)
	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	u.RawQuery = query.Encode()
	u.Fragment = ""

	return u.String(), skipped, nil
}
