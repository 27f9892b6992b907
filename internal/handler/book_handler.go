package handler

import (
	"go-school-library/internal/middleware"
	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BookHandler struct {
	service service.CatalogService
}

func NewBookHandler(s service.CatalogService) *BookHandler {
	return &BookHandler{service: s}
}

// GetBooks lists the catalog
// GET /api/v1/books?search=&category_id=&available=true&limit=&offset=
func (h *BookHandler) GetBooks(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := repository.BookFilter{
		Search:        c.Query("search"),
		AvailableOnly: c.QueryBool("available", false),
		Limit:         limit,
		Offset:        offset,
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "category")
		}
		filter.CategoryID = &id
	}

	books, total, err := h.service.ListBooks(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch books"})
	}
	return c.JSON(fiber.Map{"data": books, "total": total, "limit": limit, "offset": offset})
}

// GetBook accepts either the book ID or its slug
// GET /api/v1/books/:id
func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	param := c.Params("id")

	var (
		book *model.Book
		err  error
	)
	if id, parseErr := uuid.Parse(param); parseErr == nil {
		book, err = h.service.GetBook(id)
	} else {
		book, err = h.service.GetBookBySlug(param)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(book)
}

func (h *BookHandler) CreateBook(c *fiber.Ctx) error {
	var req service.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	book, err := h.service.CreateBook(&req, middleware.ActorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Book created", "data": book})
}

func (h *BookHandler) UpdateBook(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "book")
	}

	var req service.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.UpdateBook(bookID, &req, middleware.ActorID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Book updated", "data": updated})
}

func (h *BookHandler) DeleteBook(c *fiber.Ctx) error {
	bookID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "book")
	}

	if err := h.service.DeleteBook(bookID, middleware.ActorID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Book deleted"})
}
