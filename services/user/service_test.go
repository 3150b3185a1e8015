package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"entitlement-controlplane/services/testutil"
)

func TestListByPlatformIsScopedAndOrdered(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	store := NewStore(StoreParams{DB: db})
	now := time.Now()

	require.NoError(t, db.Create(&User{ID: "u2", PlatformID: "p1", CreatedAt: now.Add(time.Minute), PlatformRole: RoleMember, Status: StatusActive}).Error)
	require.NoError(t, db.Create(&User{ID: "u1", PlatformID: "p1", CreatedAt: now, PlatformRole: RoleAdmin, Status: StatusActive}).Error)
	require.NoError(t, db.Create(&User{ID: "u3", PlatformID: "p2", CreatedAt: now, PlatformRole: RoleMember, Status: StatusActive}).Error)

	users, err := store.ListByPlatform(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u1", users[0].ID)
	require.Equal(t, "u2", users[1].ID)

	_, err = store.ListByPlatform(context.Background(), "")
	require.Error(t, err)
}

func TestUpdateKeepsOtherPlatformsUntouched(t *testing.T) {
	db := testutil.NewTestDB(t, &User{})
	store := NewStore(StoreParams{DB: db})
	ctx := context.Background()

	require.NoError(t, db.Create(&User{ID: "u1", PlatformID: "p1", PlatformRole: RoleOperator, Status: StatusActive}).Error)

	require.NoError(t, store.Update(ctx, UpdateParams{ID: "u1", PlatformID: "p2", Status: StatusInactive, PlatformRole: RoleOperator}))

	var got User
	require.NoError(t, db.First(&got, "id = ?", "u1").Error)
	require.Equal(t, StatusActive, got.Status)

	require.NoError(t, store.Update(ctx, UpdateParams{ID: "u1", PlatformID: "p1", Status: StatusInactive, PlatformRole: RoleOperator}))
	require.NoError(t, db.First(&got, "id = ?", "u1").Error)
	require.Equal(t, StatusInactive, got.Status)
	require.Equal(t, RoleOperator, got.PlatformRole)
}
