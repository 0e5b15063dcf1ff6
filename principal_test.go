package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
)

func TestToPrincipal(t *testing.T) {
	id := uuid.New()
	roles := []auth.Role{auth.RoleEditor}
	p := auth.ToPrincipal(&auth.User{ID: id, Name: "Ada", Email: "ada@example.com"}, roles)

	assert.Equal(t, id.String(), p.UserID)
	assert.Equal(t, "Ada", p.Username)
	assert.Equal(t, roles, p.Roles)

	// the principal keeps its own copy of the roles
	roles[0] = auth.RoleAdmin
	assert.Equal(t, auth.RoleEditor, p.Roles[0])

	noName := auth.ToPrincipal(&auth.User{ID: id, Email: "ada@example.com"}, nil)
	assert.Equal(t, "ada@example.com", noName.Username)
	assert.Empty(t, noName.Roles)
	assert.False(t, noName.CanPublish())
}

func TestPrincipalFromClaims(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
		Name:             "Ada",
		UserRoles:        []string{"Admin", "Bogus", "Admin"},
	}
	p, err := auth.PrincipalFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, []auth.Role{auth.RoleAdmin}, p.Roles)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.CanPublish())

	_, err = auth.PrincipalFromClaims(&auth.JWTClaims{})
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated))

	_, err = auth.PrincipalFromClaims(nil)
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated))
}

func TestUserIDOf(t *testing.T) {
	id, err := auth.UserIDOf(&auth.Principal{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = auth.UserIDOf(nil)
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated))
	_, err = auth.UserIDOf(&auth.Principal{})
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated))
}

func TestPrincipalRoles(t *testing.T) {
	var nilPrincipal *auth.Principal
	assert.False(t, nilPrincipal.HasRole(auth.RoleReader))
	assert.False(t, nilPrincipal.CanPublish())

	editor := &auth.Principal{UserID: "u", Roles: []auth.Role{auth.RoleReader, auth.RoleEditor}}
	assert.True(t, editor.CanPublish())
	assert.False(t, editor.IsAdmin())
	assert.True(t, editor.HasAnyRole(auth.RoleAdmin, auth.RoleEditor))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := &auth.Principal{UserID: "u-1"}
	got, ok := auth.PrincipalFromContext(auth.WithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)

	_, ok = auth.PrincipalFromContext(auth.WithPrincipal(context.Background(), nil))
	assert.False(t, ok)
}

func TestPrincipalFromRouter(t *testing.T) {
	r, app := newRouterApp(t)
	r.Get("/", func(c router.Context) error {
		if _, ok := auth.PrincipalFromRouter(c, ""); ok {
			return c.SendString("unexpected")
		}
		c.Locals(auth.DefaultPrincipalKey, &auth.Principal{UserID: "u-1"})
		p, ok := auth.PrincipalFromRouter(c, "")
		if !ok {
			return c.SendString("missing")
		}
		return c.SendString(p.UserID)
	})

	res, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body := make([]byte, 16)
	n, _ := res.Body.Read(body)
	assert.Equal(t, "u-1", string(body[:n]))
}

func TestRoles(t *testing.T) {
	r, ok := auth.ParseRole("Editor")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleEditor, r)

	_, ok = auth.ParseRole("editor")
	assert.False(t, ok)

	assert.Equal(t, []string{"Admin", "Editor", "Reader"}, auth.RoleStrings(auth.GetAllRoles()))
	assert.True(t, auth.RoleEditor.CanPublish())
	assert.False(t, auth.RoleReader.CanPublish())
	assert.False(t, auth.Role("Owner").IsValid())
}
