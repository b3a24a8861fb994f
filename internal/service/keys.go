package service

import (
	"fmt"

	"prochain-bridge/internal/domain"
)

func ChainCacheKey(id string) string {
	return fmt.Sprintf("chain:%s", id)
}

func BrowseCacheKey(q domain.BrowseQuery) string {
	q = q.Normalized()
	return fmt.Sprintf("browse:%s:%s:%d", q.Category, q.Sort, q.Limit)
}

func CommentsCacheKey(chainID string) string {
	return fmt.Sprintf("comments:%s", chainID)
}

func PluginsCacheKey(userID string) string {
	return fmt.Sprintf("plugins:%s", userID)
}

func ReceivedSharesCacheKey(userID string) string {
	return fmt.Sprintf("shares:received:%s", userID)
}
