package resolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-entrada"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type stubUsers struct {
	byUUID    map[string]map[string]any
	byEmail   map[string]map[string]any
	taken     map[string]bool
	inserted  []map[string]any
	insertErr error
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byUUID:  map[string]map[string]any{},
		byEmail: map[string]map[string]any{},
		taken:   map[string]bool{},
	}
}

func (s *stubUsers) add(row map[string]any) {
	if uuid, _ := row["uuid"].(string); uuid != "" {
		s.byUUID[uuid] = row
	}
	if email, _ := row["email"].(string); email != "" {
		s.byEmail[email] = row
	}
	if username, _ := row["username"].(string); username != "" {
		s.taken[username] = true
	}
}

func (s *stubUsers) FindByUUID(ctx context.Context, uuid string) (map[string]any, error) {
	if row, ok := s.byUUID[uuid]; ok {
		return row, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (map[string]any, error) {
	if row, ok := s.byEmail[email]; ok {
		return row, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUsers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.taken[username], nil
}

func (s *stubUsers) InsertTx(ctx context.Context, tx bun.IDB, values map[string]any) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, values)
	s.add(values)
	return nil
}

type stubLinks struct {
	byProvider map[string]*SocialAccount
	upserts    int
	deleted    []string
	upsertErr  error
}

func newStubLinks() *stubLinks {
	return &stubLinks{byProvider: map[string]*SocialAccount{}}
}

func linkKey(provider, socialID string) string {
	return provider + "|" + socialID
}

func (s *stubLinks) FindByProviderID(ctx context.Context, provider, socialID string) (*SocialAccount, error) {
	if account, ok := s.byProvider[linkKey(provider, socialID)]; ok {
		return account, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubLinks) FindByUser(ctx context.Context, userUUID string) ([]*SocialAccount, error) {
	var accounts []*SocialAccount
	for _, account := range s.byProvider {
		if account.UserUUID == userUUID {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (s *stubLinks) Upsert(ctx context.Context, userUUID, provider, socialID string, snapshot entrada.Payload) error {
	return s.UpsertTx(ctx, nil, userUUID, provider, socialID, snapshot)
}

func (s *stubLinks) UpsertTx(ctx context.Context, tx bun.IDB, userUUID, provider, socialID string, snapshot entrada.Payload) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	s.byProvider[linkKey(provider, socialID)] = &SocialAccount{
		UUID:        fmt.Sprintf("link-%d", s.upserts),
		UserUUID:    userUUID,
		Provider:    provider,
		SocialID:    socialID,
		ProfileData: snapshot,
	}
	return nil
}

func (s *stubLinks) Delete(ctx context.Context, uuid string) error {
	s.deleted = append(s.deleted, uuid)
	for key, account := range s.byProvider {
		if account.UUID == uuid {
			delete(s.byProvider, key)
		}
	}
	return nil
}

type stubProfiles struct {
	byUser    map[string]map[string]any
	inserted  []map[string]any
	insertErr error
	findErr   error
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{byUser: map[string]map[string]any{}}
}

func (s *stubProfiles) FindByUser(ctx context.Context, userUUID string) (map[string]any, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if row, ok := s.byUser[userUUID]; ok {
		return row, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubProfiles) Insert(ctx context.Context, values map[string]any) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, values)
	if userUUID, _ := values["user_uuid"].(string); userUUID != "" {
		s.byUser[userUUID] = values
	}
	return nil
}

type stubTx struct {
	err error
}

func (s *stubTx) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if s.err != nil {
		return s.err
	}
	return f(ctx, bun.Tx{})
}

type fixture struct {
	users    *stubUsers
	links    *stubLinks
	profiles *stubProfiles
	tx       *stubTx
}

func newFixture() *fixture {
	return &fixture{
		users:    newStubUsers(),
		links:    newStubLinks(),
		profiles: newStubProfiles(),
		tx:       &stubTx{},
	}
}

func (f *fixture) stores() Stores {
	return Stores{
		Users:    f.users,
		Links:    f.links,
		Profiles: f.profiles,
		Tx:       f.tx,
	}
}

func (f *fixture) resolver(t *testing.T, cfg entrada.Config, opts ...Option) *Resolver {
	t.Helper()
	r, err := New(cfg, f.stores(), opts...)
	require.NoError(t, err)
	return r
}

func TestResolveExistingLinkIsIdempotent(t *testing.T) {
	f := newFixture()
	f.users.add(map[string]any{
		"uuid":     "u-1",
		"username": "jane",
		"email":    "jane@example.com",
	})
	f.links.byProvider[linkKey("github", "123")] = &SocialAccount{
		UUID:     "link-existing",
		UserUUID: "u-1",
		Provider: "github",
		SocialID: "123",
	}

	r := f.resolver(t, entrada.DefaultConfig())
	payload := entrada.Payload{"id": "123", "email": "jane@example.com"}

	first, err := r.Resolve(context.Background(), "github", payload)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "github", payload)
	require.NoError(t, err)

	assert.Equal(t, "u-1", first.UUID)
	assert.Equal(t, first.UUID, second.UUID)
	assert.Empty(t, f.users.inserted)
	// The linked path never re-links.
	assert.Zero(t, f.links.upserts)
	assert.Empty(t, r.LastError())
}

func TestResolveEmailFallbackLinksExistingUser(t *testing.T) {
	f := newFixture()
	f.users.add(map[string]any{
		"uuid":     "u-1",
		"username": "alice",
		"email":    "a@x.com",
	})

	r := f.resolver(t, entrada.DefaultConfig())

	result, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"id":    "g-1",
		"email": "a@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.UUID)
	assert.Equal(t, 1, f.links.upserts)

	// A different provider with the same email attaches a second link but
	// still resolves to the same user.
	result, err = r.Resolve(context.Background(), "github", entrada.Payload{
		"id":    "gh-9",
		"email": "a@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.UUID)
	assert.Equal(t, 2, f.links.upserts)
	assert.Empty(t, f.users.inserted)
}

func TestResolveMissingExternalID(t *testing.T) {
	f := newFixture()
	r := f.resolver(t, entrada.DefaultConfig())

	_, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"email": "a@x.com",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrMissingExternalID))
	assert.Empty(t, f.users.inserted)
	assert.Zero(t, f.links.upserts)
	assert.NotEmpty(t, r.LastError())
}

func TestResolveProviderNotEnabled(t *testing.T) {
	f := newFixture()
	cfg := entrada.DefaultConfig()
	cfg.EnabledProviders = []string{"google"}

	r := f.resolver(t, cfg)

	_, err := r.Resolve(context.Background(), "github", entrada.Payload{"id": "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrProviderNotEnabled))
}

func TestResolveAutoRegisterDisabled(t *testing.T) {
	f := newFixture()
	cfg := entrada.DefaultConfig()
	cfg.AutoRegister = false

	r := f.resolver(t, cfg)

	_, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"id":    "g-1",
		"email": "nobody@x.com",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrAutoRegistrationDisabled))
	assert.Empty(t, f.users.inserted)
	assert.Zero(t, f.links.upserts)
}

func TestResolveRegistersNewUser(t *testing.T) {
	f := newFixture()
	r := f.resolver(t, entrada.DefaultConfig())

	result, err := r.Resolve(context.Background(), "github", entrada.Payload{
		"id":             float64(42),
		"login":          "Octo.Cat",
		"email":          "octo@example.com",
		"verified_email": true,
	})
	require.NoError(t, err)

	require.Len(t, f.users.inserted, 1)
	row := f.users.inserted[0]
	assert.Equal(t, "octocat", row["username"])
	assert.Equal(t, "octo@example.com", row["email"])
	assert.Equal(t, "active", row["status"])
	assert.Nil(t, row["password"])
	assert.NotNil(t, row["email_verified_at"])
	assert.NotNil(t, row["created_at"])

	assert.Equal(t, row["uuid"], result.UUID)
	assert.Equal(t, "octo@example.com", result.Email)
	assert.Equal(t, "octocat", result.Name)
	assert.Equal(t, []string{}, result.Roles)

	// The link was created with the provider's external id.
	assert.Equal(t, 1, f.links.upserts)
	link := f.links.byProvider[linkKey("github", "42")]
	require.NotNil(t, link)
	assert.Equal(t, result.UUID, link.UserUUID)
}

func TestResolveUnverifiedEmailSkipsVerificationTimestamp(t *testing.T) {
	f := newFixture()
	r := f.resolver(t, entrada.DefaultConfig())

	_, err := r.Resolve(context.Background(), "github", entrada.Payload{
		"id":    "7",
		"login": "someone",
	})
	require.NoError(t, err)

	require.Len(t, f.users.inserted, 1)
	row := f.users.inserted[0]
	_, ok := row["email_verified_at"]
	assert.False(t, ok)
	assert.Nil(t, row["email"])
}

func TestResolveRegistrationFailureRollsUp(t *testing.T) {
	f := newFixture()
	f.tx.err = errors.New("deadlock detected")

	r := f.resolver(t, entrada.DefaultConfig())

	_, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"id":    "g-1",
		"email": "new@x.com",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrRegistrationFailed))
	assert.NotEmpty(t, r.LastError())
}

func TestResolveHookFailureSurfacesAsRegistrationFailed(t *testing.T) {
	f := newFixture()
	cfg := entrada.DefaultConfig()
	cfg.PostRegistration.Enabled = true

	hookErr := errors.New("provisioning queue unavailable")
	r := f.resolver(t, cfg, WithPostRegistrationHandler(
		entrada.PostRegistrationFunc(func(ctx context.Context, userUUID string, payload entrada.Payload) error {
			return hookErr
		}),
	))

	_, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"id":    "g-1",
		"email": "new@x.com",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrRegistrationFailed))

	// The documented caveat: the rows are already committed.
	assert.Len(t, f.users.inserted, 1)
	assert.Equal(t, 1, f.links.upserts)
}

func TestResolveHookRunsOnlyForNewUsers(t *testing.T) {
	f := newFixture()
	cfg := entrada.DefaultConfig()
	cfg.PostRegistration.Enabled = true

	var invocations []string
	r := f.resolver(t, cfg, WithPostRegistrationHandler(
		entrada.PostRegistrationFunc(func(ctx context.Context, userUUID string, payload entrada.Payload) error {
			invocations = append(invocations, userUUID)
			return nil
		}),
	))

	payload := entrada.Payload{"id": "g-1", "email": "new@x.com"}

	first, err := r.Resolve(context.Background(), "google", payload)
	require.NoError(t, err)
	require.Len(t, invocations, 1)
	assert.Equal(t, first.UUID, invocations[0])

	// Second call hits the link path; no new hook invocation.
	_, err = r.Resolve(context.Background(), "google", payload)
	require.NoError(t, err)
	assert.Len(t, invocations, 1)
}

func TestNewResolvesHandlerFromRegistry(t *testing.T) {
	registry := entrada.NewHandlerRegistry()
	registry.Register("provision", func() entrada.PostRegistrationHandler {
		return entrada.PostRegistrationFunc(func(ctx context.Context, userUUID string, payload entrada.Payload) error {
			return nil
		})
	})

	cfg := entrada.DefaultConfig()
	cfg.PostRegistration.Enabled = true
	cfg.PostRegistration.Handler = "provision"

	f := newFixture()
	_, err := New(cfg, f.stores(), WithHandlerRegistry(registry))
	require.NoError(t, err)
}

func TestNewFailsFastOnUnresolvableHandler(t *testing.T) {
	cfg := entrada.DefaultConfig()
	cfg.PostRegistration.Enabled = true
	cfg.PostRegistration.Handler = "missing"

	f := newFixture()

	_, err := New(cfg, f.stores(), WithHandlerRegistry(entrada.NewHandlerRegistry()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entrada.ErrHandlerUnresolved))

	// No registry at all fails too.
	_, err = New(cfg, f.stores())
	require.Error(t, err)
}

func TestResolveCustomSchemaFormatsUser(t *testing.T) {
	f := newFixture()
	cfg := entrada.DefaultConfig()
	cfg.Storage.Users = entrada.EntitySchema{
		Table: "members",
		Columns: map[string]string{
			"uuid":     "member_id",
			"username": "handle",
			"email":    "email_address",
		},
	}

	f.users.byEmail["a@x.com"] = map[string]any{
		"member_id":     "m-1",
		"handle":        "alice",
		"email_address": "a@x.com",
		"roles":         []string{"superuser"},
	}

	r := f.resolver(t, cfg)

	result, err := r.Resolve(context.Background(), "google", entrada.Payload{
		"id":    "g-1",
		"email": "a@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", result.UUID)
	assert.Equal(t, "alice", result.Name)
	assert.Equal(t, []string{"superuser"}, result.Roles)
}
