package handler

import (
	"github.com/gofiber/fiber/v2"

	"service-queue/internal/queue"
)

// CreateEntryRequest - Body untuk ambil tiket baru; clientName kosong = pakai nomor
type CreateEntryRequest struct {
	ClientName string `json:"clientName"`
}

// ChangeStatusRequest - Body untuk ubah status; location wajib kalau dipanggil
type ChangeStatusRequest struct {
	Location string `json:"location"`
}

// ListEntries - Semua entry hari ini untuk display
func (h *Handler) ListEntries(c *fiber.Ctx) error {
	params, err := queue.ParseListParams(c.Query("sort_by"), c.Query("sort_direction"), c.Query("status"))
	if err != nil {
		return h.fail(c, err, "Gagal mengambil daftar antrian")
	}

	entries, err := h.queue.List(c.UserContext(), params)
	if err != nil {
		return h.fail(c, err, "Gagal mengambil daftar antrian")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}

func (h *Handler) GetEntry(c *fiber.Ctx) error {
	entry, found, err := h.queue.Get(c.UserContext(), c.Params("entryKey"))
	if err != nil {
		return h.fail(c, err, "Gagal mengambil entry")
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Entry tidak ditemukan",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

func (h *Handler) CreateEntry(c *fiber.Ctx) error {
	var req CreateEntryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
	}

	entry, err := h.queue.Create(c.UserContext(), req.ClientName)
	if err != nil {
		return h.fail(c, err, "Gagal membuat entry")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

// ChangeStatus - 204 kalau berhasil, 404 kalau tidak ada baris yang berubah
func (h *Handler) ChangeStatus(c *fiber.Ctx) error {
	var req ChangeStatusRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
	}

	affected, err := h.queue.ChangeStatus(c.UserContext(), c.Params("entryKey"), c.Params("status"), req.Location)
	if err != nil {
		return h.fail(c, err, "Gagal mengubah status")
	}
	if affected < 1 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Entry tidak ditemukan",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
