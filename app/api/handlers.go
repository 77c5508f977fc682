package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/huntfeed/app/database"
	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/hub"
	"github.com/lysyi3m/huntfeed/app/scheduler"
	"github.com/lysyi3m/huntfeed/app/websub"
)

const defaultLatestLimit = 20

func NewHandler(manager *hub.Manager, subscriber *websub.Subscriber,
	itemRepo *database.ItemRepository, version string) *Handler {
	return &Handler{
		manager:    manager,
		subscriber: subscriber,
		itemRepo:   itemRepo,
		version:    version,
		startedAt:  time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	stats := h.manager.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"feeds":     stats.TotalFeeds,
		"items":     stats.TotalItems,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.manager.Stats()

	categories := make(map[string]gin.H, len(stats.Categories))
	for name, cs := range stats.Categories {
		categories[name] = gin.H{"feeds": cs.Feeds, "items": cs.Items}
	}

	response := gin.H{
		"total_feeds":      stats.TotalFeeds,
		"total_items":      stats.TotalItems,
		"total_categories": stats.TotalCategories,
		"categories":       categories,
	}
	if h.subscriber != nil {
		response["websub_subscriptions"] = len(h.subscriber.Subscriptions())
		response["websub_verified"] = h.subscriber.VerifiedCount()
	}
	if h.itemRepo != nil {
		if archived, err := h.itemRepo.GetTotalCount(); err == nil {
			response["archived_items"] = archived
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	statuses := h.manager.AllFeedStatus()
	feeds := make([]FeedResponse, 0, len(statuses))
	for _, status := range statuses {
		feeds = append(feeds, h.feedResponse(status))
	}
	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "count": len(feeds)})
}

func (h *Handler) GetFeedByID(c *gin.Context) {
	feedID := c.Param("id")
	status, ok := h.manager.FeedStatus(feedID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	response := gin.H{"feed": h.feedResponse(status)}
	if h.itemRepo != nil {
		if count, err := h.itemRepo.GetItemCount(feedID); err == nil {
			response["archived_items"] = count
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) RefreshFeedByID(c *gin.Context) {
	feedID := c.Param("id")
	newItems, ok := h.manager.ForceUpdate(c.Request.Context(), feedID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feed": feedID, "new_items": newItems})
}

func (h *Handler) DeleteFeedByID(c *gin.Context) {
	feedID := c.Param("id")
	if !h.manager.RemoveFeed(c.Request.Context(), feedID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feed": feedID, "removed": true})
}

func (h *Handler) GetLatestItems(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	var items []feed.Item
	if category := c.Query("category"); category != "" {
		items = h.manager.ItemsByCategory(category)
		if len(items) > limit {
			items = items[:limit]
		}
	} else {
		items = h.manager.Latest(limit)
	}

	c.JSON(http.StatusOK, gin.H{"items": itemResponses(items), "count": len(items)})
}

func (h *Handler) SearchItems(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	items := h.manager.Search(query)
	c.JSON(http.StatusOK, gin.H{"query": query, "items": itemResponses(items), "count": len(items)})
}

func (h *Handler) GetCategoryItems(c *gin.Context) {
	category := c.Param("name")
	items := h.manager.ItemsByCategory(category)
	c.JSON(http.StatusOK, gin.H{"category": category, "items": itemResponses(items), "count": len(items)})
}

func (h *Handler) ListSubscriptions(c *gin.Context) {
	if h.subscriber == nil {
		c.JSON(http.StatusOK, gin.H{"subscriptions": []SubscriptionResponse{}, "count": 0})
		return
	}

	subs := h.subscriber.Subscriptions()
	responses := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		response := SubscriptionResponse{
			Topic:        sub.FeedURL,
			Hub:          sub.HubURL,
			Verified:     sub.Verified,
			LeaseSeconds: sub.LeaseSeconds,
			SubscribedAt: sub.SubscribedAt,
		}
		if !sub.ExpiresAt.IsZero() {
			expiresAt := sub.ExpiresAt
			response.ExpiresAt = &expiresAt
		}
		responses = append(responses, response)
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": responses, "count": len(responses)})
}

func (h *Handler) feedResponse(status scheduler.FeedStatus) FeedResponse {
	response := FeedResponse{
		ID:        status.FeedID,
		URL:       status.URL,
		ItemCount: status.ItemCount,
		Interval:  status.Interval.String(),
	}
	if !status.LastUpdate.IsZero() {
		lastUpdate := status.LastUpdate
		response.LastUpdate = &lastUpdate
	}
	if cfg, ok := h.manager.FeedConfig(status.FeedID); ok {
		response.Categories = cfg.Categories
		response.WebSub = cfg.Settings.WebSub
	}
	if snapshot, ok := h.manager.FeedSnapshot(status.FeedID); ok {
		response.Title = snapshot.Title
	}
	return response
}

func itemResponses(items []feed.Item) []ItemResponse {
	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		response := ItemResponse{
			ID:        item.ID,
			Title:     item.Title,
			Link:      item.Link,
			Content:   item.Content,
			Enclosure: item.Enclosure,
			Category:  item.Category,
		}
		if !item.PublishedAt.IsZero() {
			publishedAt := item.PublishedAt
			response.PublishedAt = &publishedAt
		}
		responses = append(responses, response)
	}
	return responses
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLatestLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLatestLimit
	}
	return limit
}
