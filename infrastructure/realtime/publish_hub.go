package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"brandhub/domain/dto"
	"brandhub/domain/repository"

	"github.com/gin-gonic/gin"
)

const eventName = "publish_status"

// Hub maintains per-brand subscribers listening for publish events.
type Hub struct {
	mu     sync.RWMutex
	brands map[string]map[chan dto.PublishEvent]struct{}
}

func NewPublishHub() *Hub {
	return &Hub{brands: make(map[string]map[chan dto.PublishEvent]struct{})}
}

var _ repository.IPublishNotifier = (*Hub)(nil)

// Serve registers an SSE stream for the authenticated brand (brand_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	brandID := c.GetString("brand_id")
	if brandID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := make(chan dto.PublishEvent, 8)
	h.addSubscriber(brandID, ch)
	defer h.removeSubscriber(brandID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: " + eventName + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(brandID string, ch chan dto.PublishEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.brands[brandID] == nil {
		h.brands[brandID] = make(map[chan dto.PublishEvent]struct{})
	}
	h.brands[brandID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(brandID string, ch chan dto.PublishEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.brands[brandID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.brands, brandID)
		}
	}
}

// Subscribers returns the number of open streams for the brand.
func (h *Hub) Subscribers(brandID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.brands[brandID])
}

// NotifyPublished broadcasts to every stream of the event's brand. Slow
// subscribers miss events instead of blocking the publisher.
func (h *Hub) NotifyPublished(_ context.Context, evt *dto.PublishEvent) error {
	if evt == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.brands[evt.BrandID] {
		select {
		case ch <- *evt:
		default:
		}
	}
	return nil
}
