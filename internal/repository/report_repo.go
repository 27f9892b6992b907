package repository

import (
	"time"

	"go-school-library/internal/model"
	"go-school-library/pkg/clock"

	"gorm.io/gorm"
)

type ReportRepository interface {
	GetDashboardStats(today time.Time) (*DashboardStats, error)
	GetLoanMovement(startDate, endDate time.Time) ([]LoanMovementData, error)
}

// LoanMovementData untuk chart data
type LoanMovementData struct {
	Date     string `json:"date"`
	Borrowed int    `json:"borrowed"`
	Returned int    `json:"returned"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalTitles      int64 `json:"total_titles"`
	TotalCopies      int64 `json:"total_copies"`
	AvailableCopies  int64 `json:"available_copies"`
	PendingRequests  int64 `json:"pending_requests"`
	ActiveLoans      int64 `json:"active_loans"`
	DueToday         int64 `json:"due_today"` // open loans whose due date is today
	OverdueLoans     int64 `json:"overdue_loans"`
	OutstandingFines int64 `json:"outstanding_fines"` // fines on loans not yet returned
	SettledFines     int64 `json:"settled_fines"`     // fines frozen at return
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) GetDashboardStats(today time.Time) (*DashboardStats, error) {
	var stats DashboardStats
	books := func() *gorm.DB { return r.db.Model(&model.Book{}) }
	loans := func() *gorm.DB { return r.db.Model(&model.Borrowing{}) }

	steps := []*gorm.DB{
		books().Count(&stats.TotalTitles),
		books().Select("COALESCE(SUM(total_copies), 0)").Scan(&stats.TotalCopies),
		books().Select("COALESCE(SUM(available_copies), 0)").Scan(&stats.AvailableCopies),
		loans().Where("status = ?", model.StatusPending).Count(&stats.PendingRequests),
		loans().Where("status IN ?", model.ActiveStatuses).Count(&stats.ActiveLoans),
		loans().Where("status IN ? AND due_date = ?", []model.BorrowingStatus{model.StatusDipinjam, model.StatusTenggat}, clock.Date(today)).Count(&stats.DueToday),
		loans().Where("status = ?", model.StatusTerlambat).Count(&stats.OverdueLoans),
		loans().Where("status IN ?", model.ActiveStatuses).Select("COALESCE(SUM(fine_amount), 0)").Scan(&stats.OutstandingFines),
		loans().Where("status = ?", model.StatusDikembalikan).Select("COALESCE(SUM(fine_amount), 0)").Scan(&stats.SettledFines),
	}
	for _, step := range steps {
		if step.Error != nil {
			return nil, step.Error
		}
	}
	return &stats, nil
}

// GetLoanMovement counts loans started and returned per calendar day in [startDate, endDate].
func (r *reportRepo) GetLoanMovement(startDate, endDate time.Time) ([]LoanMovementData, error) {
	var borrowed, returned []time.Time
	if err := r.db.Model(&model.Borrowing{}).
		Where("borrow_date BETWEEN ? AND ?", startDate, endDate).
		Pluck("borrow_date", &borrowed).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.Borrowing{}).
		Where("return_date BETWEEN ? AND ?", startDate, endDate).
		Pluck("return_date", &returned).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]*LoanMovementData)
	var results []LoanMovementData
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		results = append(results, LoanMovementData{Date: key})
	}
	for i := range results {
		byDay[results[i].Date] = &results[i]
	}
	for _, t := range borrowed {
		if row, ok := byDay[t.Format("2006-01-02")]; ok {
			row.Borrowed++
		}
	}
	for _, t := range returned {
		if row, ok := byDay[t.Format("2006-01-02")]; ok {
			row.Returned++
		}
	}
	return results, nil
}
