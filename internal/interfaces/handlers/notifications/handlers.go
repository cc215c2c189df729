package notifications

import (
	notifsvc "estate-backend/internal/application/notifications"
	"estate-backend/internal/interfaces/handlers/common"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/pagination"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *notifsvc.Service
}

// GET /api/v1/notifications
func (h *Handlers) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	res, err := h.Service.List(c.UserContext(), user, pagination.FromQuery(c.Query("page"), c.Query("limit")))
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Notifications fetched successfully", res, nil)
}

// PATCH /api/v1/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	id, err := common.ParseID(c.Params("id"))
	if err != nil {
		return common.WriteError(c, err)
	}
	n, err := h.Service.MarkRead(c.UserContext(), user, id)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Notification marked as read", n, nil)
}

// PATCH /api/v1/notifications/read-all
func (h *Handlers) MarkAllRead(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	updated, err := h.Service.MarkAllRead(c.UserContext(), user)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "All notifications marked as read", fiber.Map{"updated": updated}, nil)
}
