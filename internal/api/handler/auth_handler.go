package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerHelperRequest struct {
	Username        string                    `json:"username"            validate:"required"`
	Password        string                    `json:"password"            validate:"required,min=6"`
	Specializations []string                  `json:"specializations"     validate:"required,min=3"`
	Destination     domain.PaymentDestination `json:"payment_destination"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// RegisterHelper creates a helper account while registration is open.
//
// @Summary      Register as a helper
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerHelperRequest  true  "Helper registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /auth/register-helper [post]
func (h *AuthHandler) RegisterHelper(c echo.Context) error {
	var req registerHelperRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.RegisterHelper(c.Request().Context(), ports.RegisterHelperInput{
		Username:        req.Username,
		Password:        req.Password,
		Specializations: req.Specializations,
		Destination:     req.Destination,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}
