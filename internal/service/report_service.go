package service

import (
	"bytes"
	"fmt"
	"time"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/pkg/clock"

	"github.com/xuri/excelize/v2"
)

type ReportService interface {
	GetDashboardStats() (*repository.DashboardStats, error)
	GetLoanMovement(days int) ([]repository.LoanMovementData, error)
	ExportBorrowings(from, to time.Time) (*bytes.Buffer, error)
}

type reportService struct {
	reportRepo    repository.ReportRepository
	borrowingRepo repository.BorrowingRepository
	clock         clock.Clock
}

func NewReportService(reportRepo repository.ReportRepository, borrowingRepo repository.BorrowingRepository, clk clock.Clock) ReportService {
	return &reportService{reportRepo: reportRepo, borrowingRepo: borrowingRepo, clock: clk}
}

func (s *reportService) GetDashboardStats() (*repository.DashboardStats, error) {
	return s.reportRepo.GetDashboardStats(s.clock.Today())
}

// GetLoanMovement covers the last days calendar days, today included.
func (s *reportService) GetLoanMovement(days int) ([]repository.LoanMovementData, error) {
	if days <= 0 {
		days = 7
	}
	endDate := s.clock.Today()
	startDate := endDate.AddDate(0, 0, -(days - 1))

	return s.reportRepo.GetLoanMovement(startDate, endDate)
}

var exportHeaders = []string{
	"No",
	"Tanggal Permintaan",
	"Peminjam",
	"NIS/NIP",
	"Kelas",
	"Judul Buku",
	"ISBN",
	"Tanggal Pinjam",
	"Jatuh Tempo",
	"Tanggal Kembali",
	"Status",
	"Diperpanjang",
	"Denda (Rp)",
}

// ExportBorrowings writes every borrowing requested in [from, to] to an xlsx
// workbook with a detail sheet and a per-status summary sheet.
func (s *reportService) ExportBorrowings(from, to time.Time) (*bytes.Buffer, error) {
	from, to = clock.Date(from), clock.Date(to)
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s is before start date %s", to.Format(clock.DateLayout), from.Format(clock.DateLayout))
	}

	borrowings, _, err := s.borrowingRepo.FindAll(repository.BorrowingFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	writeRow := func(sheet string, row int, values []interface{}) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	// Sheet 1: Detail Peminjaman
	sheetDetail := "Detail Peminjaman"
	if err := f.SetSheetName("Sheet1", sheetDetail); err != nil {
		return nil, err
	}
	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := writeRow(sheetDetail, 1, headers); err != nil {
		return nil, err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(sheetDetail, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	countByStatus := map[model.BorrowingStatus]int{}
	fineByStatus := map[model.BorrowingStatus]int64{}
	var totalFine int64
	for i, b := range borrowings {
		countByStatus[b.Status]++
		fineByStatus[b.Status] += b.FineAmount
		totalFine += b.FineAmount

		borrower, identity, class := "", "", ""
		if b.User != nil {
			borrower, identity, class = b.User.FullName, b.User.IdentityNumber, b.User.ClassName
		}
		title, isbn := "", ""
		if b.Book != nil {
			title, isbn = b.Book.Title, b.Book.ISBN
		}
		extended := "Tidak"
		if b.Extended {
			extended = "Ya"
		}

		if err := writeRow(sheetDetail, i+2, []interface{}{
			i + 1,
			b.RequestDate.Format("02-01-2006"),
			borrower,
			identity,
			class,
			title,
			isbn,
			optionalDate(b.BorrowDate),
			b.DueDate.Format("02-01-2006"),
			optionalDate(b.ReturnDate),
			string(b.Status),
			extended,
			b.FineAmount,
		}); err != nil {
			return nil, err
		}
	}

	totalRow := len(borrowings) + 3
	if err := writeRow(sheetDetail, totalRow, []interface{}{"", "", "", "", "", "", "", "", "", "", "", "TOTAL DENDA", totalFine}); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	if err := f.AutoFilter(sheetDetail, "A1:"+lastCol+"1", []excelize.AutoFilterOptions{}); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheetDetail, &excelize.Panes{Freeze: true, Split: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	// Sheet 2: Ringkasan
	sheetSummary := "Ringkasan"
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}
	if err := writeRow(sheetSummary, 1, []interface{}{"Periode", fmt.Sprintf("%s s/d %s", from.Format("02-01-2006"), to.Format("02-01-2006"))}); err != nil {
		return nil, err
	}
	if err := writeRow(sheetSummary, 3, []interface{}{"Status", "Jumlah", "Denda (Rp)"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetSummary, "A3", "C3", headerStyle); err != nil {
		return nil, err
	}
	row := 4
	for _, status := range []model.BorrowingStatus{
		model.StatusPending, model.StatusDipinjam, model.StatusTenggat,
		model.StatusTerlambat, model.StatusDikembalikan, model.StatusDitolak,
	} {
		if err := writeRow(sheetSummary, row, []interface{}{string(status), countByStatus[status], fineByStatus[status]}); err != nil {
			return nil, err
		}
		row++
	}
	if err := writeRow(sheetSummary, row, []interface{}{"TOTAL", len(borrowings), totalFine}); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f.WriteToBuffer()
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02-01-2006")
}
