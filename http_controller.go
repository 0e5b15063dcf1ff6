package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type AuthControllerRoutes struct {
	Login             string
	Register          string
	Confirm           string
	Logout            string
	UserInfo          string
	InitPasswordReset string
	PasswordReset     string
}

type AuthControllerViews struct {
	Confirm string
}

type AuthController struct {
	Debug   bool
	Logger  Logger
	Service *Service
	Config  Config
	Routes  *AuthControllerRoutes
	// Views are rendered through the server's view engine, see NewViewsEngine
	Views *AuthControllerViews
	// SetCookie also hands the token back as an HTTP only cookie, which the
	// protected routes then accept
	SetCookie bool
	// LoginURL is linked from the confirmation page
	LoginURL string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Logger = normalizeLogger(logger)
		return ac
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

func WithControllerCookie(enabled bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.SetCookie = enabled
		return ac
	}
}

func NewAuthController(service *Service, cfg Config, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:  defLogger{},
		Service: service,
		Config:  cfg,
		Routes: &AuthControllerRoutes{
			Login:             "/login",
			Register:          "/register",
			Confirm:           "/confirm",
			Logout:            "/logout",
			UserInfo:          "/userinfo",
			InitPasswordReset: "/init-password-reset",
			PasswordReset:     "/password-reset",
		},
		Views: &AuthControllerViews{
			Confirm: "confirm",
		},
		LoginURL: "/login",
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on app, typically a
// Group("/auth") of the server router
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	gk := controller.Service.Gatekeeper()
	key := controller.contextKey()
	bearer := BearerMiddleware(
		controller.Service.Authenticator().TokenService(),
		controller.Config,
		false,
		controller.SetCookie,
	)

	app.Post(controller.Routes.Login, controller.LoginPost, Guard(gk, OpLogin, key)).
		SetName("auth.login")
	app.Post(controller.Routes.Register, controller.RegisterPost, Guard(gk, OpRegister, key)).
		SetName("auth.register")
	app.Get(controller.Routes.Confirm, controller.ConfirmGet, Guard(gk, OpConfirmEmail, key)).
		SetName("auth.confirm")
	app.Post(controller.Routes.Logout, controller.LogoutPost, Chain(bearer, Guard(gk, OpLogout, key))).
		SetName("auth.logout")
	app.Get(controller.Routes.UserInfo, controller.UserInfoGet, Chain(bearer, Guard(gk, OpUserInfo, key))).
		SetName("auth.userinfo")
	app.Post(controller.Routes.InitPasswordReset, controller.InitPasswordResetPost, Guard(gk, OpInitPasswordReset, key)).
		SetName("auth.init-password-reset")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost, Guard(gk, OpPasswordReset, key)).
		SetName("auth.password-reset")
}

func (a *AuthController) contextKey() string {
	return principalKey(a.Config)
}

func (a *AuthController) bind(ctx router.Context, payload any) error {
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Info("failed to parse payload", "path", ctx.Path(), "error", err)
		return goerrors.NewValidation("failed to parse request body", goerrors.FieldError{
			Field:   "form",
			Message: "invalid request body",
		}).WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

func (a *AuthController) debug(label string, v any) {
	if a.Debug {
		a.Logger.Debug(label + "\n" + print.MaybePrettyJSON(v))
	}
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := a.bind(ctx, payload); err != nil {
		return ErrorResponse(ctx, err)
	}

	res, err := a.Service.Login(ctx.Context(), LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return ErrorResponse(ctx, err)
	}

	if a.SetCookie {
		setCookieToken(ctx, a.contextKey(), res.Token, res.ExpiresAt)
	}

	return ctx.JSON(router.StatusOK, res)
}

// RegistrationCreatePayload is the registration request body
type RegistrationCreatePayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Name     string `form:"name" json:"name"`
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)
	if err := a.bind(ctx, payload); err != nil {
		return ErrorResponse(ctx, err)
	}

	profile, err := a.Service.Register(ctx.Context(), payload.Email, payload.Name, payload.Password)
	if err != nil {
		return ErrorResponse(ctx, err)
	}

	a.debug("registered", profile)

	return ctx.JSON(router.StatusOK, profile)
}

func (a *AuthController) ConfirmGet(ctx router.Context) error {
	email := ctx.Query("email", "")
	token := ctx.Query("token", "")

	data := router.ViewContext{
		"email":     email,
		"login_url": a.LoginURL,
	}

	status := http.StatusOK
	if err := a.Service.ConfirmEmail(ctx.Context(), email, token); err != nil {
		payload := NewErrorPayload(err)
		status = payload.Code
		data["confirmed"] = false
		data["message"] = ErrInvalidConfirmation.Message
		if payload.Category == goerrors.CategoryInternal {
			data["message"] = "something went wrong, please try again later"
		}
	} else {
		data["confirmed"] = true
	}

	if err := ctx.Status(status).Render(a.Views.Confirm, data); err != nil {
		a.Logger.Error("failed to render confirmation page", "error", err)
		return ctx.Status(router.StatusInternalServerError).SendString("failed to render page")
	}
	return nil
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	p, _ := PrincipalFromRouter(ctx, a.contextKey())
	if err := a.Service.Logout(p); err != nil {
		return ErrorResponse(ctx, err)
	}
	if a.SetCookie {
		cookieDel(ctx, a.contextKey())
	}
	return ctx.Status(router.StatusOK).SendString("")
}

func (a *AuthController) UserInfoGet(ctx router.Context) error {
	p, _ := PrincipalFromRouter(ctx, a.contextKey())
	info, err := a.Service.UserInfo(p)
	if err != nil {
		return ErrorResponse(ctx, err)
	}
	return ctx.JSON(router.StatusOK, info)
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

func (a *AuthController) InitPasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)
	if err := a.bind(ctx, payload); err != nil {
		return ErrorResponse(ctx, err)
	}

	if err := a.Service.InitPasswordReset(ctx.Context(), payload.Email); err != nil {
		return ErrorResponse(ctx, err)
	}

	return ctx.Status(router.StatusOK).SendString("")
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Email           string `form:"email" json:"email"`
	Token           string `form:"token" json:"token"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetVerifyPayload)
	if err := a.bind(ctx, payload); err != nil {
		return ErrorResponse(ctx, err)
	}

	err := a.Service.PasswordReset(ctx.Context(), FinalizePasswordResetMessage{
		Email:           payload.Email,
		Token:           payload.Token,
		NewPassword:     payload.NewPassword,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		return ErrorResponse(ctx, err)
	}

	return ctx.Status(router.StatusOK).SendString("")
}
