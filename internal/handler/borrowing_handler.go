package handler

import (
	"time"

	"go-school-library/internal/middleware"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"
	"go-school-library/pkg/clock"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BorrowingHandler struct {
	service service.BorrowingService
	clock   clock.Clock
}

func NewBorrowingHandler(s service.BorrowingService, clk clock.Clock) *BorrowingHandler {
	return &BorrowingHandler{service: s, clock: clk}
}

// Submit creates a borrowing request for the current user
// POST /api/v1/borrowings
func (h *BorrowingHandler) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req service.SubmitBorrowRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	borrowing, err := h.service.Submit(&req, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Borrowing requested", "data": borrowing})
}

// GetBorrowings lists borrowings. Without borrowing:view_all only the caller's own
// borrowings are returned.
// GET /api/v1/borrowings?status=&user_id=&book_id=&from=&to=&limit=&offset=
func (h *BorrowingHandler) GetBorrowings(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := repository.BorrowingFilter{
		Status: model.BorrowingStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid status"})
	}

	if middleware.HasPrivilege(c, model.PrivBorrowingViewAll) {
		if raw := c.Query("user_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return invalidID(c, "user")
			}
			filter.UserID = &id
		}
	} else {
		self, ok := middleware.CurrentUserID(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}
		filter.UserID = &self
	}

	if raw := c.Query("book_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "book")
		}
		filter.BookID = &id
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	borrowings, total, err := h.service.List(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch borrowings"})
	}
	return c.JSON(fiber.Map{"data": borrowings, "total": total, "limit": limit, "offset": offset})
}

// GetBorrowing returns one borrowing; borrowers only see their own
// GET /api/v1/borrowings/:id
func (h *BorrowingHandler) GetBorrowing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "borrowing")
	}
	viewer, _ := middleware.CurrentUserID(c)

	borrowing, err := h.service.Get(id, viewer, middleware.HasPrivilege(c, model.PrivBorrowingViewAll))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(borrowing)
}

// Approve POST /api/v1/borrowings/:id/approve
func (h *BorrowingHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, "Borrowing approved", h.service.Approve)
}

// RejectRequest carries the optional reason shown to the borrower.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject POST /api/v1/borrowings/:id/reject
func (h *BorrowingHandler) Reject(c *fiber.Ctx) error {
	var req RejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidJSON(c)
		}
	}
	return h.transition(c, "Borrowing rejected", func(id uuid.UUID, actorID string) (*model.Borrowing, error) {
		return h.service.Reject(id, actorID, req.Reason)
	})
}

// Extend POST /api/v1/borrowings/:id/extend
func (h *BorrowingHandler) Extend(c *fiber.Ctx) error {
	return h.transition(c, "Borrowing extended", h.service.Extend)
}

// Return POST /api/v1/borrowings/:id/return
func (h *BorrowingHandler) Return(c *fiber.Ctx) error {
	return h.transition(c, "Book returned", h.service.MarkReturned)
}

func (h *BorrowingHandler) transition(c *fiber.Ctx, message string, action func(uuid.UUID, string) (*model.Borrowing, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "borrowing")
	}

	borrowing, err := action(id, middleware.ActorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": message, "data": borrowing})
}

// SweepRequest optionally overrides the day being swept.
type SweepRequest struct {
	Date string `json:"date"`
}

// Sweep runs the due-date escalation on demand
// POST /api/v1/borrowings/sweep
func (h *BorrowingHandler) Sweep(c *fiber.Ctx) error {
	var req SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidJSON(c)
		}
	}

	day := h.clock.Today()
	if req.Date != "" {
		d, err := clock.ParseDate(req.Date)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		day = d
	}

	report, err := h.service.RunDailySweep(c.UserContext(), day)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := clock.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
