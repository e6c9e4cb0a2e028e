// Package entrada resolves third-party identity assertions into local user
// accounts. It receives an already-verified, normalized provider payload
// (Google, Facebook, GitHub, Apple, ...) and links, creates, and syncs local
// records around it.
//
// Resolution order:
//   - Match an existing social link by (provider, provider user id). This is
//     the idempotent re-authentication path; it never re-registers or
//     re-links.
//   - Fall back to matching an existing user by email and attach a new link,
//     so a user who registered by email can sign in through any provider
//     without duplicating accounts.
//   - Otherwise register a new user. The user row and its social link are
//     created inside one transaction so readers never observe one without
//     the other.
//
// Schema mapping:
//   - Applications rarely share a users table layout, so every canonical
//     field (uuid, email, username, status, ...) is routed through an
//     EntitySchema that maps it onto the configured table and column names.
//     Provider payloads are equally heterogeneous; FieldMap bridges those
//     with ordered alias lists per canonical key.
//
// Provisioning hooks:
//   - Applications can register a PostRegistrationHandler that runs once
//     after a new user is durably committed. Hook failures surface as a
//     registration failure even though the rows persist; callers that need
//     stronger guarantees should compensate (e.g. mark the user pending and
//     retry provisioning).
//
// Token issuance, OAuth handshakes, and HTTP transport live outside this
// package: the resolver hands back a canonical user record and the calling
// layer mints whatever session or token format it uses.
package entrada
