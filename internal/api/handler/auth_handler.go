package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/authd/internal/api/metrics"
	"github.com/rolegate/authd/internal/api/middleware"
	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

type AuthHandler struct {
	users ports.UserService
}

func NewAuthHandler(users ports.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=2500"`
}

type registerRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=10,max=2500"`
	Firstname   string   `json:"firstname" validate:"required"`
	Lastname    string   `json:"lastname" validate:"required"`
	Roles       []string `json:"roles" validate:"omitempty,min=1,max=2500,dive,required"`
	Permissions []string `json:"permissions" validate:"omitempty,min=1,max=2500,dive,required"`
}

type userEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=2500"`
}

type rolePermissions struct {
	Roles       []string `json:"roles" validate:"omitempty,min=1,max=2500,dive,required"`
	Permissions []string `json:"permissions" validate:"omitempty,min=1,max=2500,dive,required"`
}

type assignPermissionsRequest struct {
	Email  string           `json:"email" validate:"required,email"`
	Add    *rolePermissions `json:"add"`
	Remove *rolePermissions `json:"remove"`
}

type jwtResponse struct {
	JWT string `json:"jwt"`
}

type userResponse struct {
	Email               string   `json:"email"`
	Firstname           string   `json:"firstname"`
	Lastname            string   `json:"lastname"`
	Roles               []string `json:"roles"`
	Permissions         []string `json:"permissions"`
	CombinedPermissions []string `json:"combined_permissions"`
}

type principalResponse struct {
	Email       string   `json:"email"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		Email:               u.Email,
		Firstname:           u.Firstname,
		Lastname:            u.Lastname,
		Roles:               u.RoleNames(),
		Permissions:         u.Permissions().Names(),
		CombinedPermissions: u.EffectivePermissions().Names(),
	}
}

func (r *rolePermissions) toChange() *ports.PermissionChange {
	if r == nil {
		return nil
	}
	return &ports.PermissionChange{Roles: r.Roles, Permissions: r.Permissions}
}

// Login exchanges credentials for a signed token.
//
// @Summary      Login
// @Description  Generate a JSON Web Token from user credentials.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  jwtResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("user").Inc()

	return c.JSON(http.StatusOK, jwtResponse{JWT: token})
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  jwtResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.users.Register(c.Request().Context(), caller, ports.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Roles:       req.Roles,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues("user").Inc()

	return c.JSON(http.StatusCreated, jwtResponse{JWT: token})
}

// DeleteUser removes a user account.
//
// @Summary      Delete a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  userEmailRequest  true  "User to delete"
// @Success      202
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/user [delete]
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req userEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.users.DeleteUser(c.Request().Context(), caller, req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// ResetPassword changes a user's password. Callers need the reset-all
// permission, or the reset-self permission when targeting themselves.
//
// @Summary      Reset a user's password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  resetPasswordRequest  true  "Target user and new password"
// @Success      202
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/user/reset_password [put]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := middleware.Check(c, domain.RequireSelfOr(domain.PermPasswordResetAll, domain.PermPasswordResetSelf, req.Email)); err != nil {
		return err
	}
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.users.ResetPassword(c.Request().Context(), caller, req.Email, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// UpdatePermissions adds then removes roles and permissions on a user.
//
// @Summary      Update a user's permissions
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  assignPermissionsRequest  true  "Roles and permissions to add and remove"
// @Success      202
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/user/permissions [put]
func (h *AuthHandler) UpdatePermissions(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req assignPermissionsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.users.UpdatePermissions(c.Request().Context(), caller, ports.UpdatePermissionsInput{
		Email:  req.Email,
		Add:    req.Add.toChange(),
		Remove: req.Remove.toChange(),
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// GetUser returns a user's details with their combined permissions.
//
// @Summary      View a user's details
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userEmailRequest  true  "User to view"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/user [post]
func (h *AuthHandler) GetUser(c echo.Context) error {
	var req userEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := middleware.Check(c, domain.RequireSelfOr(domain.PermUserViewAll, domain.PermUserViewSelf, req.Email)); err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Me echoes the principal resolved for the bearer token.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/me [get]
func Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, principalResponse{
		Email:       p.Email,
		Roles:       p.Roles,
		Permissions: p.Permissions.Names(),
	})
}
