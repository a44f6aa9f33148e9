// internal/domain/homework/fetcher.go
package homework

import (
	"context"
	"time"
)

// Fetcher queries the review API for submissions updated since from.
type Fetcher interface {
	FetchStatuses(ctx context.Context, from time.Time) (Response, error)
}
