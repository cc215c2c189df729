package favorites

import (
	"strings"

	favsvc "estate-backend/internal/application/favorites"
	"estate-backend/internal/interfaces/handlers/common"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/pagination"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *favsvc.Service
}

// GET /api/v1/favorites
func (h *Handlers) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	res, err := h.Service.List(c.UserContext(), user, pagination.FromQuery(c.Query("page"), c.Query("limit")))
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Favorites fetched successfully", res, nil)
}

// GET /api/v1/favorites/ids
func (h *Handlers) IDs(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	ids, err := h.Service.IDs(c.UserContext(), user)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Favorite ids fetched successfully", fiber.Map{"ids": ids}, nil)
}

// POST /api/v1/favorites with body {propertyId}
func (h *Handlers) Add(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	var body struct {
		PropertyID string `json:"propertyId"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.PropertyID) == "" {
		return response.BadRequest(c, "Missing required field: propertyId")
	}
	listingID, err := common.ParseID(strings.TrimSpace(body.PropertyID))
	if err != nil {
		return common.WriteError(c, err)
	}
	fav, err := h.Service.Add(c.UserContext(), user, listingID)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.SuccessCreated(c, "Added to favorites", fav, nil)
}

// DELETE /api/v1/favorites/:propertyId
func (h *Handlers) Remove(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUserID(c)
	listingID, err := common.ParseID(c.Params("propertyId"))
	if err != nil {
		return common.WriteError(c, err)
	}
	if err := h.Service.Remove(c.UserContext(), user, listingID); err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Removed from favorites", fiber.Map{"propertyId": listingID}, nil)
}
