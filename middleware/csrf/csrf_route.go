package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls how the CSRF token bootstrap endpoint behaves.
type RouteConfig struct {
	Path       string
	ContextKey string
	RouteName  string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "auth.csrf.get"
)

// RegisterRoutes registers a GET endpoint returning the token issued by the
// middleware, which must run first.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, tokenHandler(conf)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}
	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}
	return conf
}

func tokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(c router.Context) error {
		token, _ := c.Locals(cfg.ContextKey).(string)
		if token == "" {
			return c.JSON(router.StatusUnauthorized, map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		c.SetHeader("Cache-Control", "no-store, max-age=0")
		c.SetHeader("Pragma", "no-cache")
		c.SetHeader("Expires", "0")

		fieldName := DefaultFormFieldName
		if v, ok := c.Locals(cfg.ContextKey + "_field").(string); ok && v != "" {
			fieldName = v
		}

		headerName := DefaultHeaderName
		if v, ok := c.Locals(cfg.ContextKey + "_header").(string); ok && v != "" {
			headerName = v
		}

		return c.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  fieldName,
			"header_name": headerName,
		})
	}
}
