package handler_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportEndpoints(t *testing.T) {
	s := newServer(t)
	admin := s.login(t, adminEmail, adminPassword)
	siti := s.student(t, "Siti Aminah")

	book := createBook(t, s, admin, "Pulang", 2)
	res := s.do(t, http.MethodPost, "/api/v1/borrowings", siti, fiber.Map{"book_id": book["id"]})
	require.Equal(t, http.StatusCreated, res.status)

	res = s.do(t, http.MethodGet, "/api/v1/reports/stats", siti, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(t, http.MethodGet, "/api/v1/reports/stats", admin, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.body))

	res = s.do(t, http.MethodGet, "/api/v1/reports/loan-movement?days=3", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	movement := res.json(t)
	assert.EqualValues(t, 3, movement["period"])
	assert.Len(t, movement["data"], 3)

	res = s.do(t, http.MethodGet, "/api/v1/reports/borrowings/export?start=2025-01-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.do(t, http.MethodGet, "/api/v1/reports/borrowings/export?start=2025-01-31&end=2025-01-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.do(t, http.MethodGet, "/api/v1/reports/borrowings/export", admin, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	assert.Equal(t, "attachment; filename=peminjaman_20250101_20250106.xlsx", res.header.Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(res.body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Detail Peminjaman")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Contains(t, rows[1], "Siti Aminah")
}
