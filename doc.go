// Package auth is the authentication and authorization core of the blog.
//
// Passwords:
//   - New records are Argon2id PHC strings. Bcrypt records still verify and
//     are upgraded on the next successful login.
//
// Tokens:
//   - Bearer tokens are HS256 JWTs carrying the user id, name and roles.
//     Tokens are stateless: logout does not revoke them.
//   - Confirmation and password reset links carry single-use random tokens.
//     Only their SHA-256 digest is stored.
//
// Authorization:
//   - Gatekeeper consults a Policy table per Operation in a fixed order:
//     anonymous allowed, authenticated, role allowed, owner match. Owner
//     checks load the resource at check time through a ResourceLoader.
//
// Flows:
//   - Service composes the command handlers behind register, confirm, login,
//     logout, user info and password reset. Emails go out after the
//     transaction commits and a failed dispatch never fails the flow.
//   - ActivitySink receives login, registration, confirmation and reset
//     events. Sinks are best-effort.
//
// Storage lives behind UserStore; the repository package implements it
// with bun.
package auth
