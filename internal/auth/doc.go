// Package auth provides API key authentication for appdeck-gateway.
//
// # API Keys
//
// API keys are JWT tokens signed with HS256 using the configured jwt_secret.
// Each key carries a "role" claim that determines what it may do:
//
//   - "service_role": full read/write access to the admin API
//   - "anon": read-only access (listing and fetching records)
//
// Keys are minted with the keygen command and verified on every request.
//
// # HTTP Middleware
//
// Two middleware layers protect the admin API:
//
//	HTTPAuthMiddleware(verifier) // Any valid key; attaches the role to context
//	RequireWriteHTTP()           // service_role only; stacks after the above
//
// Handlers retrieve the active role from request context:
//
//	authCtx := auth.FromContext(r.Context())
//	if authCtx.CanWrite() { ... }
//
// # Key Generation
//
// Mint keys for a role:
//
//	verifier := auth.NewJWTVerifier(secret)
//	key, err := verifier.Generate(auth.RoleServiceRole, 0) // no expiration
//	key, err := verifier.Generate(auth.RoleAnon, 90*24*time.Hour)
package auth
