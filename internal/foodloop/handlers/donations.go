package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/service"
)

const maxPhotoBytes = 5 << 20

// ============================================================
// Donation Handler
// ============================================================

type DonationHandler struct {
	donations *service.DonationService
	log       *zap.Logger
}

func NewDonationHandler(donations *service.DonationService, log *zap.Logger) *DonationHandler {
	return &DonationHandler{donations: donations, log: log}
}

func (h *DonationHandler) Create(c fiber.Ctx) error {
	var req service.CreateDonationInput
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	actor, _ := actorFrom(c)
	d, err := h.donations.Create(c.Context(), actor, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(d)
}

func (h *DonationHandler) List(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	items, err := h.donations.List(c.Context(), actor, models.DonationStatus(c.Query("status")))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

func (h *DonationHandler) Get(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	d, err := h.donations.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}

type assignRequest struct {
	DriverID string `json:"driver_id"`
}

func (h *DonationHandler) Assign(c fiber.Ctx) error {
	var req assignRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "invalid json")
		}
	}

	actor, _ := actorFrom(c)
	d, err := h.donations.Assign(c.Context(), actor, c.Params("id"), req.DriverID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}

type lifecycleOp func(ctx context.Context, actor service.Actor, id string) (*models.Donation, error)

func (h *DonationHandler) Approve(c fiber.Ctx) error { return h.transition(c, h.donations.Approve) }
func (h *DonationHandler) Reject(c fiber.Ctx) error  { return h.transition(c, h.donations.Reject) }
func (h *DonationHandler) Cancel(c fiber.Ctx) error  { return h.transition(c, h.donations.Cancel) }
func (h *DonationHandler) Claim(c fiber.Ctx) error   { return h.transition(c, h.donations.Claim) }
func (h *DonationHandler) PickUp(c fiber.Ctx) error  { return h.transition(c, h.donations.PickUp) }
func (h *DonationHandler) Deliver(c fiber.Ctx) error { return h.transition(c, h.donations.Deliver) }

func (h *DonationHandler) transition(c fiber.Ctx, op lifecycleOp) error {
	actor, _ := actorFrom(c)
	d, err := op(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(d)
}

// UploadPhoto принимает multipart-поле "file".
func (h *DonationHandler) UploadPhoto(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	if fileHeader.Size > maxPhotoBytes {
		return c.Status(http.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "photo too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "cannot open file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "cannot read file")
	}

	actor, _ := actorFrom(c)
	d, err := h.donations.SavePhoto(c.Context(), actor, c.Params("id"), fileHeader.Filename, data)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(d)
}

func (h *DonationHandler) GetPhoto(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	path, err := h.donations.PhotoPath(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, service.ContentType(path))
	return c.SendFile(path)
}
