package listings

import (
	"encoding/json"
	"strconv"
	"strings"

	listsvc "estate-backend/internal/application/listings"
	"estate-backend/internal/domain"
	"estate-backend/internal/interfaces/handlers/common"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/pagination"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *listsvc.Service
}

// listingBody is the JSON accepted by create and update. Price is left loose
// so clients may send either a number or a numeric string.
type listingBody struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       interface{}      `json:"price"`
	Type        *string          `json:"type"`
	Status      *string          `json:"status"`
	Location    *domain.Location `json:"location"`
	Bedrooms    *int             `json:"bedrooms"`
	Bathrooms   *int             `json:"bathrooms"`
	Area        *float64         `json:"area"`
	Images      *[]string        `json:"images"`
	Features    *[]string        `json:"features"`
	Featured    *bool            `json:"featured"`
}

// GET /api/v1/properties
func (h *Handlers) Search(c *fiber.Ctx) error {
	res, err := h.Service.Search(c.UserContext(), c.Queries(), window(c))
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", res, nil)
}

// GET /api/v1/sale/properties: same pipeline with type pinned to sale.
func (h *Handlers) SaleSearch(c *fiber.Ctx) error {
	res, err := h.Service.SearchCategory(c.UserContext(), domain.CategorySale, c.Queries(), window(c))
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", res, nil)
}

// GET /api/v1/users/me/properties
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	owner, _ := middleware.CurrentUserID(c)
	res, err := h.Service.ListMine(c.UserContext(), owner, window(c))
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", res, nil)
}

// POST /api/v1/properties
func (h *Handlers) Create(c *fiber.Ctx) error {
	owner, _ := middleware.CurrentUserID(c)
	var body listingBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	in := listsvc.CreateInput{
		Title:       deref(body.Title),
		Description: deref(body.Description),
		Type:        deref(body.Type),
		Status:      deref(body.Status),
		Location:    body.Location,
		Featured:    body.Featured != nil && *body.Featured,
	}
	if body.Price != nil {
		p, ok := asFloat(body.Price)
		if !ok {
			return response.BadRequest(c, "Invalid price: must be a non-negative number")
		}
		in.Price = &p
	}
	if body.Bedrooms != nil {
		in.Bedrooms = *body.Bedrooms
	}
	if body.Bathrooms != nil {
		in.Bathrooms = *body.Bathrooms
	}
	if body.Area != nil {
		in.Area = *body.Area
	}
	if body.Images != nil {
		in.Images = *body.Images
	}
	if body.Features != nil {
		in.Features = *body.Features
	}

	listing, err := h.Service.Create(c.UserContext(), owner, in)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.SuccessCreated(c, "Property created successfully", listing, nil)
}

// GET /api/v1/properties/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := common.ParseID(c.Params("id"))
	if err != nil {
		return common.WriteError(c, err)
	}
	listing, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Property fetched successfully", listing, nil)
}

// PUT /api/v1/properties/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	return h.update(c, c.Params("id"))
}

// PUT /api/v1/sale/properties?id=
func (h *Handlers) SaleUpdate(c *fiber.Ctx) error {
	return h.update(c, c.Query("id"))
}

// PATCH /api/v1/properties/:id/status
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	owner, _ := middleware.CurrentUserID(c)
	id, err := common.ParseID(c.Params("id"))
	if err != nil {
		return common.WriteError(c, err)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		return response.BadRequest(c, "Missing required field: status")
	}
	listing, err := h.Service.ChangeStatus(c.UserContext(), owner, id, body.Status)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Property status updated successfully", listing, nil)
}

// DELETE /api/v1/properties/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	return h.delete(c, c.Params("id"))
}

// DELETE /api/v1/sale/properties?id=
func (h *Handlers) SaleDelete(c *fiber.Ctx) error {
	if c.Query("id") == "" {
		return response.BadRequest(c, "Missing required field: id")
	}
	return h.delete(c, c.Query("id"))
}

func (h *Handlers) update(c *fiber.Ctx, rawID string) error {
	if rawID == "" {
		return response.BadRequest(c, "Missing required field: id")
	}
	owner, _ := middleware.CurrentUserID(c)
	id, err := common.ParseID(rawID)
	if err != nil {
		return common.WriteError(c, err)
	}
	var body listingBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	in := listsvc.UpdateInput{
		Title:       body.Title,
		Description: body.Description,
		Type:        body.Type,
		Status:      body.Status,
		Location:    body.Location,
		Bedrooms:    body.Bedrooms,
		Bathrooms:   body.Bathrooms,
		Area:        body.Area,
		Images:      body.Images,
		Features:    body.Features,
		Featured:    body.Featured,
	}
	if body.Price != nil {
		p, ok := asFloat(body.Price)
		if !ok {
			return response.BadRequest(c, "Invalid price: must be a non-negative number")
		}
		in.Price = &p
	}
	listing, err := h.Service.Update(c.UserContext(), owner, id, in)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Property updated successfully", listing, nil)
}

func (h *Handlers) delete(c *fiber.Ctx, rawID string) error {
	owner, _ := middleware.CurrentUserID(c)
	id, err := common.ParseID(rawID)
	if err != nil {
		return common.WriteError(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), owner, id); err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Property deleted successfully", fiber.Map{"id": id}, nil)
}

func window(c *fiber.Ctx) pagination.Window {
	return pagination.FromQuery(c.Query("page"), c.Query("limit"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
