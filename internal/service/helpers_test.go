package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-school-library/internal/lifecycle"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/internal/testutil"
	"go-school-library/pkg/clock"
)

// testClock is a clock the test can move between calls.
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) Today() time.Time { return clock.Date(c.Now()) }

func (c *testClock) Set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = mustDay(day).Add(9 * time.Hour)
}

// recordingPusher keeps every realtime event instead of writing to sockets.
type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

type pushed struct {
	userID uuid.UUID
	value  map[string]interface{}
}

func (p *recordingPusher) SendJSON(userID uuid.UUID, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, _ := v.(map[string]interface{})
	p.events = append(p.events, pushed{userID: userID, value: m})
}

func (p *recordingPusher) ofType(kind string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, e := range p.events {
		if e.value["type"] == kind {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db            *gorm.DB
	clock         *testClock
	pusher        *recordingPusher
	userRepo      repository.UserRepository
	bookRepo      repository.BookRepository
	categoryRepo  repository.CategoryRepository
	borrowingRepo repository.BorrowingRepository
	notifRepo     repository.NotificationRepository
	notifications service.NotificationService
	borrowings    service.BorrowingService
	catalog       service.CatalogService
}

type envOption func(*envConfig)

type envConfig struct {
	maxActive int
	fineCap   int64
	notifier  service.NotificationService
}

func withMaxActive(n int) envOption {
	return func(c *envConfig) { c.maxActive = n }
}

func withFineCap(amount int64) envOption {
	return func(c *envConfig) { c.fineCap = amount }
}

func withNotifier(n service.NotificationService) envOption {
	return func(c *envConfig) { c.notifier = n }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{maxActive: 3}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewDB(t)
	e := &testEnv{
		db:            db,
		clock:         &testClock{},
		pusher:        &recordingPusher{},
		userRepo:      repository.NewUserRepo(db),
		bookRepo:      repository.NewBookRepo(db),
		categoryRepo:  repository.NewCategoryRepo(db),
		borrowingRepo: repository.NewBorrowingRepo(db),
		notifRepo:     repository.NewNotificationRepo(db),
	}
	e.clock.Set("2025-01-01")

	log := zap.NewNop()
	e.notifications = service.NewNotificationService(e.notifRepo, e.userRepo, e.pusher, log)
	notifier := e.notifications
	if cfg.notifier != nil {
		notifier = cfg.notifier
	}
	policy := lifecycle.DefaultPolicy()
	policy.FineCap = cfg.fineCap
	e.borrowings = service.NewBorrowingService(
		e.borrowingRepo, e.bookRepo, e.userRepo, notifier, db,
		service.BorrowingConfig{Policy: policy, MaxActiveLoans: cfg.maxActive},
		e.clock, log,
	)
	e.catalog = service.NewCatalogService(e.bookRepo, e.categoryRepo, e.borrowingRepo, db, e.pusher, log)
	return e
}

func (e *testEnv) student(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{
		Email:          uuid.NewString()[:8] + "@siswa.sch.id",
		FullName:       name,
		IdentityNumber: "NIS-" + uuid.NewString()[:6],
		ClassName:      "XI IPA 2",
		IsActive:       true,
	}
	require.NoError(t, user.SetPassword("rahasia"))
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) book(t *testing.T, title string, copies int) *model.Book {
	t.Helper()
	book := &model.Book{
		Title:           title,
		Slug:            "buku-" + uuid.NewString(),
		Author:          "Tere Liye",
		ISBN:            "978" + randomDigits(10),
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, e.bookRepo.Create(book))
	return book
}

func (e *testEnv) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	book, err := e.bookRepo.FindByID(bookID)
	require.NoError(t, err)
	return book.AvailableCopies
}

func (e *testEnv) unread(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	n, err := e.notifRepo.CountUnread(userID)
	require.NoError(t, err)
	return n
}

// assertStockConserved checks that shelf copies plus copies held by loans equal the total.
func (e *testEnv) assertStockConserved(t *testing.T, bookID uuid.UUID) {
	t.Helper()
	book, err := e.bookRepo.FindByID(bookID)
	require.NoError(t, err)

	var held int64
	require.NoError(t, e.db.Model(&model.Borrowing{}).
		Where("book_id = ? AND status IN ?", bookID, model.ActiveStatuses).
		Count(&held).Error)
	require.Equal(t, book.TotalCopies, book.AvailableCopies+int(held), "stock not conserved")
}

func mustDay(s string) time.Time {
	d, err := clock.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func randomDigits(n int) string {
	id := uuid.New()
	digits := make([]byte, n)
	for i := range digits {
		digits[i] = '0' + id[i%len(id)]%10
	}
	return string(digits)
}

func assertDay(t *testing.T, want string, got time.Time) {
	t.Helper()
	assert.Equal(t, want, got.Format(clock.DateLayout))
}
