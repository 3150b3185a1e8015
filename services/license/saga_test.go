package license

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/platform"
	"entitlement-controlplane/services/testutil"
	"entitlement-controlplane/services/user"
)

func userStatuses(t *testing.T, f *fixture, platformID string) map[string]user.Status {
	t.Helper()
	users, err := f.users.ListByPlatform(context.Background(), platformID)
	require.NoError(t, err)
	out := map[string]user.Status{}
	for _, u := range users {
		out[u.ID] = u.Status
	}
	return out
}

func TestDowngradeRevokesFeaturesAndDeactivatesNonAdmins(t *testing.T) {
	f := newFixture(t)
	f.addPlatform(t, "p1", testutil.Ptr("abc"))
	f.addUser(t, "admin", "p1", user.RoleAdmin, user.StatusActive)
	f.addUser(t, "member", "p1", user.RoleMember, user.StatusActive)
	f.addUser(t, "operator", "p1", user.RoleOperator, user.StatusActive)
	f.addUser(t, "other", "p2", user.RoleMember, user.StatusActive)

	require.NoError(t, f.service.DowngradeToFreePlan(context.Background(), "p1"))

	require.Equal(t, TurnedOffFeatures(), f.features(t, "p1"))
	require.Equal(t, map[string]user.Status{
		"admin":    user.StatusActive,
		"member":   user.StatusInactive,
		"operator": user.StatusInactive,
	}, userStatuses(t, f, "p1"))
	require.Equal(t, user.StatusActive, userStatuses(t, f, "p2")["other"])

	var operator user.User
	require.NoError(t, f.db.First(&operator, "id = ?", "operator").Error)
	require.Equal(t, user.RoleOperator, operator.PlatformRole)

	saga := f.saga(t, "p1")
	require.True(t, saga.Completed())
	require.NotNil(t, saga.CompletedAt)
	require.Equal(t, 1, saga.Attempts)
	require.Empty(t, saga.LastError)
}

func TestDowngradeDeactivatesEachUserOnce(t *testing.T) {
	f := newFixture(t)
	f.addPlatform(t, "p1", testutil.Ptr("abc"))
	f.addUser(t, "admin", "p1", user.RoleAdmin, user.StatusActive)
	f.addUser(t, "member", "p1", user.RoleMember, user.StatusActive)
	ctx := context.Background()

	require.NoError(t, f.service.DowngradeToFreePlan(ctx, "p1"))
	require.NoError(t, f.service.DowngradeToFreePlan(ctx, "p1"))

	require.Equal(t, []string{"member"}, f.users.updated)
	require.Equal(t, 2, f.platforms.featureWrites)
	require.Equal(t, user.StatusActive, userStatuses(t, f, "p1")["admin"])
}

func TestDowngradeDeletesOnlyArchivePieces(t *testing.T) {
	f := newFixture(t)
	f.addPlatform(t, "p1", testutil.Ptr("abc"))
	f.pieces.pieces = []*piece.Piece{
		{ID: "archive", ProjectID: "proj1", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p1")},
		{ID: "registry", ProjectID: "proj1", PackageType: piece.PackageTypeRegistry, PlatformID: testutil.Ptr("p1")},
		{ID: "", ProjectID: "proj1", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p1")},
		{ID: "archive2", ProjectID: "proj2", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p1")},
		{ID: "shared", ProjectID: "proj1", PackageType: piece.PackageTypeArchive},
		{ID: "foreign", ProjectID: "proj3", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p2")},
	}

	require.NoError(t, f.service.DowngradeToFreePlan(context.Background(), "p1"))

	sort.Strings(f.pieces.deleted)
	require.Equal(t, []string{"archive2@proj2", "archive@proj1"}, f.pieces.deleted)
	require.Equal(t, piece.ListParams{
		Edition:       piece.EditionEnterprise,
		IncludeHidden: true,
		Release:       "0.50.0",
		PlatformID:    "p1",
	}, f.pieces.params)
}

func remainingPieces(t *testing.T, f *fixture) []string {
	t.Helper()
	var pieces []*piece.Piece
	require.NoError(t, f.db.Order("id asc").Find(&pieces).Error)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.ID)
	}
	return out
}

func TestDowngradeDeletesOnlyPiecesOwnedByPlatform(t *testing.T) {
	for _, edition := range []string{EditionEnterprise, EditionCommunity} {
		t.Run(edition, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.db.AutoMigrate(&piece.Piece{}))
			f.service.pieces = piece.NewStore(piece.StoreParams{DB: f.db})
			f.service.edition = edition
			f.service.baseline = Baseline(edition)

			f.addPlatform(t, "p1", testutil.Ptr("abc"))
			f.addPlatform(t, "p2", testutil.Ptr("def"))
			for _, p := range []*piece.Piece{
				{ID: "own", Name: "own", ProjectID: "proj1", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p1")},
				{ID: "own-hidden", Name: "own-hidden", ProjectID: "proj1", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p1"), Hidden: true},
				{ID: "own-registry", Name: "own-registry", ProjectID: "proj1", PackageType: piece.PackageTypeRegistry, PlatformID: testutil.Ptr("p1")},
				{ID: "other", Name: "other", ProjectID: "proj2", PackageType: piece.PackageTypeArchive, PlatformID: testutil.Ptr("p2")},
				{ID: "shared", Name: "shared", ProjectID: "proj1", PackageType: piece.PackageTypeArchive},
			} {
				require.NoError(t, f.db.Create(p).Error)
			}

			require.NoError(t, f.service.DowngradeToFreePlan(context.Background(), "p1"))

			require.Equal(t, []string{"other", "own-registry", "shared"}, remainingPieces(t, f))
			require.True(t, f.saga(t, "p1").PiecesDeleted)
		})
	}
}

func TestDowngradeStopsWhenFeaturesCannotBeRevoked(t *testing.T) {
	f := newFixture(t)
	f.addPlatform(t, "p1", testutil.Ptr("abc"))
	f.addUser(t, "member", "p1", user.RoleMember, user.StatusActive)
	f.platforms.updateFeatures = func(context.Context, string, platform.Features) error {
		return errors.New("db down")
	}

	err := f.service.DowngradeToFreePlan(context.Background(), "p1")
	require.ErrorContains(t, err, "db down")

	require.Empty(t, f.users.updated)
	require.Empty(t, f.pieces.deleted)

	saga := f.saga(t, "p1")
	require.False(t, saga.FeaturesRevoked)
	require.Contains(t, saga.LastError, "db down")
}

func TestDowngradeResumesAtFailedStep(t *testing.T) {
	f := newFixture(t)
	f.addPlatform(t, "p1", testutil.Ptr("abc"))
	f.addUser(t, "m1", "p1", user.RoleMember, user.StatusActive)
	f.addUser(t, "m2", "p1", user.RoleMember, user.StatusActive)
	f.pieces.pieces = []*piece.Piece{{ID: "archive", ProjectID: "proj1", PackageType: piece.PackageTypeArchive}}
	f.users.update = func(ctx context.Context, p user.UpdateParams) error {
		if p.ID == "m1" {
			return errors.New("lock timeout")
		}
		return f.users.UserStore.Update(ctx, p)
	}
	ctx := context.Background()

	err := f.service.DowngradeToFreePlan(ctx, "p1")
	require.ErrorContains(t, err, "lock timeout")

	// Every update is attempted even though one fails.
	require.ElementsMatch(t, []string{"m1", "m2"}, f.users.updated)
	require.Equal(t, user.StatusInactive, userStatuses(t, f, "p1")["m2"])

	saga := f.saga(t, "p1")
	require.True(t, saga.FeaturesRevoked)
	require.False(t, saga.UsersDeactivated)
	require.True(t, saga.PiecesDeleted)
	require.Nil(t, saga.CompletedAt)

	var failures map[SagaStep]string
	require.NoError(t, json.Unmarshal(saga.Failures, &failures))
	require.Contains(t, failures[StepDeactivateUsers], "lock timeout")
	require.NotContains(t, failures, StepDeletePieces)

	f.users.update = nil
	require.NoError(t, f.service.DowngradeToFreePlan(ctx, "p1"))

	require.Equal(t, 1, f.platforms.featureWrites)
	require.Len(t, f.pieces.deleted, 1)
	require.Equal(t, user.StatusInactive, userStatuses(t, f, "p1")["m1"])

	saga = f.saga(t, "p1")
	require.True(t, saga.Completed())
	require.Equal(t, 2, saga.Attempts)
	require.Empty(t, saga.LastError)
}
