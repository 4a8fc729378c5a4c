package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/felipe-nonato/task-manager/internal/api/dto"
	"github.com/felipe-nonato/task-manager/internal/service"
)

var validate = validator.New()

// UsersHandler exposes registration, login and the user listing.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid payload")
	}
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, registerValidationMessage(err))
	}

	user, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields), errors.Is(err, service.ErrPasswordTooShort), errors.Is(err, service.ErrDuplicateEmail):
			return errorJSON(c, http.StatusBadRequest, err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "failed to register user")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "user registered successfully",
		"userId":  user.ID,
	})
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid payload")
	}
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "email and password are required")
	}

	user, err := h.auth.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
			return errorJSON(c, http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrTooManyAttempts):
			return errorJSON(c, http.StatusTooManyRequests, err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "authentication failed")
		}
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"user":    dto.UserFromDomain(*user),
	})
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to fetch users")
	}
	return c.JSON(dto.UsersFromDomain(users))
}

func registerValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "Password" && fe.Tag() == "min" {
				return service.ErrPasswordTooShort.Error()
			}
		}
	}
	return service.ErrMissingFields.Error()
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
