package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/service"
)

// ============================================================
// Auth Handler
// ============================================================

type AuthHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register создаёт аккаунт (кроме admin).
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req service.RegisterInput
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	user, err := h.accounts.Register(c.Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(user)
}

// Login выдаёт токен по паре email/password.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password required")
	}

	token, user, err := h.accounts.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(loginResponse{Token: token, User: user})
}

func (h *AuthHandler) Me(c fiber.Ctx) error {
	actor, _ := actorFrom(c)
	user, err := h.accounts.Get(c.Context(), actor.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}
