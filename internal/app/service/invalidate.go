package service

import (
	"context"
	"hackathon_portal/internal/app/cache"
)

const (
	statsCacheKey      = "stats:teams"
	analyticsKeyPrefix = "analytics:"
)

// invalidateAggregates drops every cached value derived from teams or scores.
func invalidateAggregates(ctx context.Context, c *cache.Cache) {
	if c == nil {
		return
	}
	c.DeletePattern(ctx, analyticsKeyPrefix+"*")
	c.DeletePattern(ctx, "stats:*")
}
