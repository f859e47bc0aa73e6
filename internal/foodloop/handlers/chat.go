package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/service"
)

type ChatHandler struct {
	chat *service.ChatService
	log  *zap.Logger
}

func NewChatHandler(chat *service.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

// Handle отвечает ассистентом на сообщение пользователя.
func (h *ChatHandler) Handle(c fiber.Ctx) error {
	var req service.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.Language == "" {
		req.Language = c.Get(fiber.HeaderAcceptLanguage)
	}
	resp, err := h.chat.Handle(c.Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(resp)
}
