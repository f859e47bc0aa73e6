package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/service"
)

// ============================================================
// Contact Handler
// ============================================================

type MessageHandler struct {
	messages *service.MessageService
	log      *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, log: log}
}

func (h *MessageHandler) Submit(c fiber.Ctx) error {
	var req service.ContactInput
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	m, err := h.messages.Submit(c.Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(m)
}

func (h *MessageHandler) List(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	items, err := h.messages.List(c.Context(), actor)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

type replyRequest struct {
	Body string `json:"body"`
}

func (h *MessageHandler) Reply(c fiber.Ctx) error {
	var req replyRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	actor, _ := actorFrom(c)
	rp, err := h.messages.Reply(c.Context(), actor, c.Params("id"), req.Body)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(rp)
}
