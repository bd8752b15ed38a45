package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/remindly/deadline-service/internal/domain"
	"github.com/remindly/deadline-service/internal/observability"
	"github.com/remindly/deadline-service/internal/service"
)

type DeadlineService interface {
	Create(ctx context.Context, input service.DeadlineInput) (*domain.Deadline, error)
	List(ctx context.Context) ([]domain.Deadline, error)
	Update(ctx context.Context, id string, input service.DeadlineInput) (*domain.Deadline, error)
	Delete(ctx context.Context, id string) error
	FormatDueDate(t time.Time) string
}

type DeadlineHandler struct {
	service DeadlineService
}

func NewDeadlineHandler(service DeadlineService) (*DeadlineHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("deadline service is required")
	}
	return &DeadlineHandler{service: service}, nil
}

func RegisterDeadlineRoutes(router fiber.Router, service DeadlineService) error {
	h, err := NewDeadlineHandler(service)
	if err != nil {
		return err
	}

	api := router.Group("/api")
	api.Post("/deadlines", h.CreateDeadline)
	api.Get("/deadlines", h.ListDeadlines)
	api.Put("/deadlines/:id", h.UpdateDeadline)
	api.Delete("/deadlines/:id", h.DeleteDeadline)

	return nil
}

type deadlineRequest struct {
	ActivityName string   `json:"activityName"`
	DueDate      string   `json:"dueDate"`
	Recipients   []string `json:"recipients"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
}

type deadlineResponse struct {
	ID           string     `json:"id"`
	ActivityName string     `json:"activityName"`
	DueDate      string     `json:"dueDate"`
	Recipients   []string   `json:"recipients"`
	Subject      string     `json:"subject,omitempty"`
	Body         string     `json:"body,omitempty"`
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (h *DeadlineHandler) CreateDeadline(c *fiber.Ctx) error {
	var req deadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(requestContext(c), requestToInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "deadline created",
		"data":    h.toDeadlineResponse(created),
	})
}

func (h *DeadlineHandler) ListDeadlines(c *fiber.Ctx) error {
	deadlines, err := h.service.List(requestContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]deadlineResponse, 0, len(deadlines))
	for i := range deadlines {
		responses = append(responses, h.toDeadlineResponse(&deadlines[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    responses,
	})
}

func (h *DeadlineHandler) UpdateDeadline(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req deadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(requestContext(c), id, requestToInput(req))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "deadline updated",
		"data":    h.toDeadlineResponse(updated),
	})
}

func (h *DeadlineHandler) DeleteDeadline(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(requestContext(c), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "deadline deleted",
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	var ctx context.Context = c.Context()
	if cid := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); cid != "" {
		ctx = observability.WithCorrelationID(ctx, cid)
	}
	return ctx
}

func requestToInput(req deadlineRequest) service.DeadlineInput {
	return service.DeadlineInput{
		ActivityName: req.ActivityName,
		DueDate:      req.DueDate,
		Recipients:   req.Recipients,
		Subject:      req.Subject,
		Body:         req.Body,
	}
}

func (h *DeadlineHandler) toDeadlineResponse(d *domain.Deadline) deadlineResponse {
	if d == nil {
		return deadlineResponse{}
	}

	return deadlineResponse{
		ID:           d.ID,
		ActivityName: d.ActivityName,
		DueDate:      h.service.FormatDueDate(d.DueAt),
		Recipients:   d.Recipients,
		Subject:      d.Subject,
		Body:         d.Body,
		Sent:         d.Sent,
		SentAt:       d.SentAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
