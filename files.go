package auth

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views/*.django
var viewsFS embed.FS

// GetViewsFS returns the HTML templates of this package
func GetViewsFS() fs.FS {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewViewsEngine builds the django engine over the embedded templates
func NewViewsEngine() *django.Engine {
	return django.NewFileSystem(http.FS(GetViewsFS()), ".django")
}
