package license

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/platform"
	"entitlement-controlplane/services/testutil"
	"entitlement-controlplane/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockAuthority struct {
	mu    sync.Mutex
	calls []string

	requestTrial    func(ctx context.Context, req TrialRequest) error
	markAsActivated func(ctx context.Context, key, platformID string) error
	getKey          func(ctx context.Context, key string) (*LicenseKey, error)
}

func (m *mockAuthority) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockAuthority) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockAuthority) RequestTrial(ctx context.Context, req TrialRequest) error {
	m.record("RequestTrial:" + req.Email)
	if m.requestTrial != nil {
		return m.requestTrial(ctx, req)
	}
	return nil
}

func (m *mockAuthority) MarkAsActivated(ctx context.Context, key, platformID string) error {
	m.record("MarkAsActivated:" + key)
	if m.markAsActivated != nil {
		return m.markAsActivated(ctx, key, platformID)
	}
	return nil
}

func (m *mockAuthority) GetKey(ctx context.Context, key string) (*LicenseKey, error) {
	m.record("GetKey:" + key)
	if m.getKey != nil {
		return m.getKey(ctx, key)
	}
	return nil, nil
}

type fixedRelease string

func (r fixedRelease) CurrentRelease(context.Context) (string, error) {
	return string(r), nil
}

type platformStoreMock struct {
	PlatformStore

	mu             sync.Mutex
	featureWrites  int
	updateFeatures func(ctx context.Context, id string, f platform.Features) error
}

func (m *platformStoreMock) UpdateFeatures(ctx context.Context, id string, f platform.Features) error {
	m.mu.Lock()
	m.featureWrites++
	m.mu.Unlock()
	if m.updateFeatures != nil {
		return m.updateFeatures(ctx, id, f)
	}
	return m.PlatformStore.UpdateFeatures(ctx, id, f)
}

type userStoreMock struct {
	UserStore

	mu      sync.Mutex
	updated []string
	update  func(ctx context.Context, p user.UpdateParams) error
}

func (m *userStoreMock) Update(ctx context.Context, p user.UpdateParams) error {
	m.mu.Lock()
	m.updated = append(m.updated, p.ID)
	m.mu.Unlock()
	if m.update != nil {
		return m.update(ctx, p)
	}
	return m.UserStore.Update(ctx, p)
}

type pieceStoreMock struct {
	mu      sync.Mutex
	pieces  []*piece.Piece
	deleted []string
	params  piece.ListParams
	delete  func(ctx context.Context, id, projectID string) error
}

func (m *pieceStoreMock) List(_ context.Context, p piece.ListParams) ([]*piece.Piece, error) {
	m.params = p
	return m.pieces, nil
}

func (m *pieceStoreMock) Delete(ctx context.Context, id, projectID string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id+"@"+projectID)
	m.mu.Unlock()
	if m.delete != nil {
		return m.delete(ctx, id, projectID)
	}
	return nil
}

type fixture struct {
	db        *gorm.DB
	authority *mockAuthority
	platforms *platformStoreMock
	users     *userStoreMock
	pieces    *pieceStoreMock
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t, &platform.Platform{}, &user.User{}, &DowngradeSaga{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.License.Edition = EditionEnterprise

	f := &fixture{
		db:        db,
		authority: &mockAuthority{},
		platforms: &platformStoreMock{PlatformStore: platform.NewStore(platform.StoreParams{DB: db})},
		users:     &userStoreMock{UserStore: user.NewStore(user.StoreParams{DB: db})},
		pieces:    &pieceStoreMock{},
	}
	f.service = NewService(ServiceParams{
		DB:        db,
		Config:    cfg,
		Node:      node,
		Authority: f.authority,
		Platforms: f.platforms,
		Users:     f.users,
		Pieces:    f.pieces,
		Releases:  fixedRelease("0.50.0"),
	})
	return f
}

func (f *fixture) addPlatform(t *testing.T, id string, key *string) {
	t.Helper()
	require.NoError(t, f.db.Create(&platform.Platform{
		ID:         id,
		Name:       id,
		LicenseKey: key,
		Features:   EnterpriseDefaults(),
	}).Error)
}

func (f *fixture) addUser(t *testing.T, id, platformID string, role user.PlatformRole, status user.Status) {
	t.Helper()
	require.NoError(t, f.db.Create(&user.User{
		ID:           id,
		PlatformID:   platformID,
		PlatformRole: role,
		Status:       status,
	}).Error)
}

func (f *fixture) features(t *testing.T, platformID string) platform.Features {
	t.Helper()
	var p platform.Platform
	require.NoError(t, f.db.First(&p, "id = ?", platformID).Error)
	return p.Features
}

func (f *fixture) saga(t *testing.T, platformID string) *DowngradeSaga {
	t.Helper()
	var s DowngradeSaga
	err := f.db.Where("platform_id = ?", platformID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &s
}

func validKey(key string) *LicenseKey {
	activated := time.Now().Add(-24 * time.Hour)
	expires := time.Now().Add(24 * time.Hour)
	return &LicenseKey{
		ID:          "lk_" + key,
		Key:         key,
		ActivatedAt: &activated,
		ExpiresAt:   &expires,
	}
}
