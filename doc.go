// Package auth is the authentication and authorization core of the wedding
// admin. It covers four concerns:
//
// Tokens:
//   - TokenService signs and verifies HS256 access and refresh tokens that
//     carry IdentityClaims. Verification failures are VerificationErrors with
//     one of three reasons (expired, malformed, bad signature).
//
// Identities:
//   - Identity is a closed set of variants: SuperIdentity, StaffIdentity,
//     OwnerIdentity and LegacyIdentity. Use Visit to dispatch on the variant.
//
// Decisions:
//   - Authorizer turns a raw token into an AccessDecision and decides whether
//     an identity may act on a Wedding. Archived weddings are read-only for
//     everyone but super admins.
//   - Gate extracts bearer tokens from request headers. Mutating handlers call
//     RequireWeddingAccess, load the wedding, then AuthorizeForWedding.
//   - DecisionListener observes every decision; DecisionMetrics exports them
//     to prometheus.
//
// Login:
//   - Auther exchanges credentials and refresh tokens for token pairs and
//     reports each attempt to an ActivitySink. AuthController mounts it on a
//     fiber router.
//
// The session package is the client side counterpart that stores tokens and
// refreshes them; repository persists accounts and weddings with bun.
package auth
