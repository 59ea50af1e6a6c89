// Package stats reads the user's lifetime game statistics.
package stats

import (
	"context"
	"log"
	"net/http"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/models"
)

// Query fetches stats fresh on every call; nothing is cached.
type Query struct {
	api      *client.Client
	endpoint string
}

func NewQuery(api *client.Client, endpoints client.Endpoints) *Query {
	return &Query{api: api, endpoint: endpoints.Stats}
}

// Fetch returns the counters from the server. Use GameStats.Total for the
// game count; the wire total is not trusted.
func (q *Query) Fetch(ctx context.Context) (models.GameStats, error) {
	resp, err := client.Do[models.StatsResponse](ctx, q.api, http.MethodGet, q.endpoint, nil)
	if err != nil {
		log.Printf("stats: fetch failed: %v", err)
		return models.GameStats{}, err
	}
	return resp.Stats, nil
}
