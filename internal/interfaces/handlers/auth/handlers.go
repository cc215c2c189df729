package auth

import (
	"context"
	"errors"

	authsvc "estate-backend/internal/application/auth"
	"estate-backend/internal/domain"
	"estate-backend/internal/interfaces/handlers/common"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Users      *authsvc.Service
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// Register POST /api/v1/auth/register: create the user and start a session.
func (h *Handlers) Register(c *fiber.Ctx) error {
	if h.Users == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	user, err := h.Users.Register(c.UserContext(), authsvc.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Fullname: req.Fullname,
	})
	if errors.Is(err, authsvc.ErrEmailTaken) {
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	if err != nil {
		return common.WriteError(c, err)
	}
	shape, err := h.startSession(c, user)
	if err != nil {
		return common.WriteError(c, err)
	}
	log.Info().Str("user_id", shape.UserID).Msg("user registered")
	return response.SuccessCreated(c, "Registration successful", fiber.Map{"user": shape}, nil)
}

// Login POST /api/v1/auth/login: authenticate, create session, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.BadRequest(c, authsvc.ErrEmailPasswordRequired.Error())
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	default:
		return common.WriteError(c, err)
	}

	shape, err := h.startSession(c, user)
	if err != nil {
		return common.WriteError(c, err)
	}
	return response.Success(c, "Login successful", fiber.Map{"user": shape}, nil)
}

// Me GET /api/v1/auth/me: current session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		log.Debug().Str("trace_id", middleware.GetTraceID(c)).
			Bool("session_present", middleware.GetSessionID(c) != "").
			Msg("auth/me: not authenticated")
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout: drop the session key and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if sessionID != "" {
		if userID, ok := middleware.CurrentUserID(c); ok {
			_ = h.Rdb.SRem(ctx, userSessionsPrefix+userID.String(), sessionID).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) (*authsvc.SessionUserShape, error) {
	sessionID := middleware.RegenerateSessionID(c)
	shape := &authsvc.SessionUserShape{
		UserID:   user.UserID.String(),
		Fullname: user.Fullname,
		Email:    user.Email,
	}
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   shape.UserID,
		Fullname: shape.Fullname,
		Email:    shape.Email,
	})
	if err := h.Rdb.SAdd(context.Background(), userSessionsPrefix+shape.UserID, sessionID).Err(); err != nil {
		return nil, err
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = middleware.SessionCookieValue(h.Config, sessionID)
	c.Cookie(&cookie)
	return shape, nil
}
