package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Validate checks the login payload.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 512)),
	)
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// Validate checks the refresh payload.
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// AuthControllerRoutes holds route paths relative to the mount point.
type AuthControllerRoutes struct {
	Login   string
	Refresh string
	Me      string
}

// AuthController serves login, refresh and identity endpoints.
type AuthController struct {
	Logger Logger
	Routes *AuthControllerRoutes
	Auther *Auther
	Gate   *Gate
}

// AuthControllerOption configures an AuthController
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(l)
		return c
	}
}

// WithControllerRoutes overrides the route table.
func WithControllerRoutes(r AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = &r
		return c
	}
}

// NewAuthController wires a controller around auther and gate.
func NewAuthController(auther *Auther, gate *Gate, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defaultLogger(),
		Auther: auther,
		Gate:   gate,
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Refresh: "/refresh",
			Me:      "/me",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}
	return c
}

// RegisterAuthRoutes mounts the controller routes on r.
func RegisterAuthRoutes(r fiber.Router, controller *AuthController) {
	r.Post(controller.Routes.Login, controller.LoginPost).Name("auth.login")
	r.Post(controller.Routes.Refresh, controller.RefreshPost).Name("auth.refresh")
	r.Get(controller.Routes.Me, controller.MeGet).Name("auth.me")
}

// LoginPost exchanges credentials for a token pair.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.sendError(c, CodeBadRequest, err)
	}
	if err := payload.Validate(); err != nil {
		return a.sendError(c, CodeBadRequest, err)
	}

	res, err := a.Auther.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return a.sendError(c, CodeFromError(err), err)
	}

	return c.JSON(NewLoginResponse(res))
}

// RefreshPost rotates a token pair.
func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	payload := RefreshRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.sendError(c, CodeBadRequest, err)
	}
	if err := payload.Validate(); err != nil {
		return a.sendError(c, CodeBadRequest, err)
	}

	res, err := a.Auther.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return a.sendError(c, CodeFromError(err), err)
	}

	return c.JSON(NewLoginResponse(res))
}

// MeGet returns the caller's identity claims.
func (a *AuthController) MeGet(c *fiber.Ctx) error {
	d := a.Gate.RequireAuthentication(FiberHeaders(c))
	if !d.Authenticated {
		return SendDecision(c, d)
	}
	return c.JSON(fiber.Map{"user": d.User.Claims()})
}

func (a *AuthController) sendError(c *fiber.Ctx, code ErrorCode, err error) error {
	if code == CodeInternalError {
		a.Logger.Error("auth controller error", "path", c.Path(), "error", err)
	} else {
		a.Logger.Debug("auth controller rejected request", "path", c.Path(), "code", code, "error", err)
	}

	body := ErrorBody{Error: code.Message(), Code: code}
	if code == CodeBadRequest && err != nil {
		body.Error = err.Error()
	}
	return c.Status(code.StatusCode()).JSON(body)
}
