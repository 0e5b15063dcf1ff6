package auth

// Principal is the authenticated identity of the current request.
// It is built once per request and never mutated afterwards.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

// ToPrincipal projects a user and its roles into a Principal
func ToPrincipal(user *User, roles []Role) Principal {
	p := Principal{Roles: append([]Role(nil), roles...)}
	if user == nil {
		return p
	}
	p.UserID = user.ID.String()
	p.Username = user.Name
	if p.Username == "" {
		p.Username = user.Email
	}
	return p
}

// PrincipalFromClaims builds the request principal from validated claims
func PrincipalFromClaims(claims *JWTClaims) (*Principal, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, ErrUnauthenticated
	}
	return &Principal{
		UserID:   claims.UserID(),
		Username: claims.Name,
		Roles:    claims.Roles(),
	}, nil
}

// UserIDOf extracts the user id. A missing principal or id means the
// caller is unauthenticated.
func UserIDOf(p *Principal) (string, error) {
	if p == nil || p.UserID == "" {
		return "", ErrUnauthenticated
	}
	return p.UserID, nil
}

// HasRole checks if the principal holds role
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the principal holds at least one of roles
func (p *Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAdmin is a shortcut for HasRole(RoleAdmin)
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// CanPublish reports whether the principal may work on drafts
func (p *Principal) CanPublish() bool {
	return p.HasAnyRole(RoleAdmin, RoleEditor)
}
