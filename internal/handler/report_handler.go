package handler

import (
	"fmt"
	"strconv"

	"go-school-library/internal/service"
	"go-school-library/pkg/clock"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
	clock   clock.Clock
}

func NewReportHandler(s service.ReportService, clk clock.Clock) *ReportHandler {
	return &ReportHandler{service: s, clock: clk}
}

// GetLoanMovement returns borrowed/returned counts per day for charts
// Query params: days (default 7)
func (h *ReportHandler) GetLoanMovement(c *fiber.Ctx) error {
	daysStr := c.Query("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 || days > 366 {
		days = 7
	}

	data, err := h.service.GetLoanMovement(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch loan movement"})
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(stats)
}

// ExportBorrowings downloads borrowings requested between start and end as xlsx.
// Without parameters the current month so far is exported.
// GET /api/v1/reports/borrowings/export?start=2025-01-01&end=2025-01-31
func (h *ReportHandler) ExportBorrowings(c *fiber.Ctx) error {
	today := h.clock.Today()
	start := clock.AddDays(today, 1-today.Day())
	end := today

	startStr, endStr := c.Query("start"), c.Query("end")
	if (startStr == "") != (endStr == "") {
		return c.Status(400).JSON(fiber.Map{"error": "start dan end harus diisi bersamaan"})
	}
	if startStr != "" {
		var errStart, errEnd error
		start, errStart = clock.ParseDate(startStr)
		end, errEnd = clock.ParseDate(endStr)
		if errStart != nil || errEnd != nil {
			return c.Status(400).JSON(fiber.Map{"error": "format tanggal harus YYYY-MM-DD"})
		}
		if end.Before(start) {
			return c.Status(400).JSON(fiber.Map{"error": "end tidak boleh sebelum start"})
		}
	}

	buf, err := h.service.ExportBorrowings(start, end)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("peminjaman_%s_%s.xlsx", start.Format("20060102"), end.Format("20060102"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(buf.Bytes())
}
