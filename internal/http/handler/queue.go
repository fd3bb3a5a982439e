package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"service-queue/internal/queue"
)

// CurrentQueue - Long-poll: tunggu sampai antrian berubah atau timeout
func (h *Handler) CurrentQueue(c *fiber.Ctx) error {
	timeout, ok := parseTimeout(c.Query("timeout"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "timeout harus angka detik atau durasi (mis. 30s)",
		})
	}

	params, err := queue.ParseListParams(c.Query("sort_by"), c.Query("sort_direction"), c.Query("status"))
	if err != nil {
		return h.fail(c, err, "Gagal mengambil antrian")
	}

	snapshot, err := h.queue.AwaitQueue(c.UserContext(), params, timeout)
	if err != nil {
		return h.fail(c, err, "Gagal mengambil antrian")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"flag":    snapshot.Flag,
		"entries": snapshot.Entries,
	})
}

// parseTimeout accepts whole seconds ("30") or a Go duration ("1m30s").
// Empty means the service default.
func parseTimeout(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
