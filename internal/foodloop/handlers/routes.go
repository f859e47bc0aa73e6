package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/service"
)

// Services собирает зависимости HTTP-слоя.
type Services struct {
	Repo      *repository.Repository
	Sessions  *service.SessionManager
	Accounts  *service.AccountService
	Donations *service.DonationService
	Messages  *service.MessageService
	Chat      *service.ChatService
	Maps      *service.MapService
}

// Register вешает health-пробы и /api на app.
func Register(app *fiber.App, s Services, log *zap.Logger) {
	health := NewHealthHandler(s.Repo, log)
	app.Get("/health/live", health.LivenessProbe)
	app.Get("/health/ready", health.ReadinessProbe)
	app.Get("/health/startup", health.StartupProbe)

	authH := NewAuthHandler(s.Accounts, log)
	donationH := NewDonationHandler(s.Donations, log)
	messageH := NewMessageHandler(s.Messages, log)
	chatH := NewChatHandler(s.Chat, log)
	mapH := NewMapHandler(s.Maps, log)

	requireAuth := RequireAuth(s.Sessions)
	api := app.Group("/api")

	// ============================================================
	// Public
	// ============================================================

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/contact", messageH.Submit)
	api.Post("/chat", chatH.Handle)
	api.Get("/public/stats", PublicStats(s.Repo, log))
	api.Get("/map/roles", mapH.Roles)
	api.Get("/map/route", mapH.Route)

	// ============================================================
	// Authenticated
	// ============================================================

	api.Get("/auth/me", requireAuth, authH.Me)
	api.Get("/map/locations", requireAuth, mapH.Locations)

	donations := api.Group("/donations", requireAuth)
	donations.Post("/", RequireRole(models.RoleDonor), donationH.Create)
	donations.Get("/", donationH.List)
	donations.Get("/:id", donationH.Get)
	donations.Post("/:id/approve", RequireRole(models.RoleAdmin), donationH.Approve)
	donations.Post("/:id/reject", RequireRole(models.RoleAdmin), donationH.Reject)
	donations.Post("/:id/cancel", RequireRole(models.RoleDonor, models.RoleAdmin), donationH.Cancel)
	donations.Post("/:id/claim", RequireRole(models.RoleReceiver), donationH.Claim)
	donations.Post("/:id/assign", RequireRole(models.RoleDriver, models.RoleAdmin), donationH.Assign)
	donations.Post("/:id/pickup", RequireRole(models.RoleDriver, models.RoleAdmin), donationH.PickUp)
	donations.Post("/:id/deliver", RequireRole(models.RoleDriver, models.RoleAdmin), donationH.Deliver)
	donations.Post("/:id/photo", RequireRole(models.RoleDonor), donationH.UploadPhoto)
	donations.Get("/:id/photo", donationH.GetPhoto)

	admin := api.Group("/admin", requireAuth, RequireRole(models.RoleAdmin))
	admin.Get("/messages", messageH.List)
	admin.Post("/messages/:id/reply", messageH.Reply)
}
