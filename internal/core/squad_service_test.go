package core

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
)

type squadServiceFixture struct {
	store     *db.MemoryStore
	userRepo  db.UserRepository
	squadRepo db.SquadRepository
	users     UserService
	squads    SquadService
}

func newSquadServiceFixture(t *testing.T) *squadServiceFixture {
	t.Helper()
	store := db.NewMemoryStore()
	userRepo := db.NewMemoryUserRepository(store)
	squadRepo := db.NewMemorySquadRepository(store)
	return &squadServiceFixture{
		store:     store,
		userRepo:  userRepo,
		squadRepo: squadRepo,
		users:     NewUserService(userRepo),
		squads:    NewSquadService(squadRepo, userRepo),
	}
}

func (f *squadServiceFixture) addUser(t *testing.T, id string) *models.User {
	t.Helper()
	user, created, err := f.users.GetOrCreate(context.Background(), id, id+"@example.com", "User "+id, "")
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func TestCreateSquad(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "  Night Owls  ", Bio: "we stay up"})
	require.NoError(t, err)

	assert.Equal(t, "Night Owls", squad.Name, "name should be trimmed")
	assert.Equal(t, "alice", squad.OwnerID)
	assert.Equal(t, []string{"alice"}, squad.Members, "founder must be the sole member")
	assert.Equal(t, models.RoleLeader, squad.RoleOf("alice"))
	assert.Equal(t, models.RoleNone, squad.RoleOf("bob"))

	alice, err := f.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, squad.ID, alice.SquadID, "founder's squad reference must be set atomically")
}

func TestCreateSquadValidation(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")

	_, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "ab"})
	assert.ErrorIs(t, err, ErrInvalidSquadName)

	_, err = f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "   a   "})
	assert.ErrorIs(t, err, ErrInvalidSquadName, "whitespace must not count toward the length")

	long := ""
	for i := 0; i < 31; i++ {
		long += "x"
	}
	_, err = f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: long})
	assert.ErrorIs(t, err, ErrInvalidSquadName)
}

func TestCreateSquadNameConflictIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	_, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)

	_, err = f.squads.CreateSquad(ctx, "bob", models.CreateSquadRequest{Name: "NIGHT owls"})
	assert.ErrorIs(t, err, ErrSquadNameTaken)
}

func TestCreateSquadWhileAlreadyInOne(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")

	_, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "First Squad"})
	require.NoError(t, err)

	_, err = f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Second Squad"})
	assert.ErrorIs(t, err, ErrAlreadyInSquad)
}

func TestJoinSquad(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	created, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)

	squad, err := f.squads.JoinSquad(ctx, "bob", created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, squad.Members)
	assert.Equal(t, models.RoleMember, squad.RoleOf("bob"))

	bob, err := f.users.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bob.SquadID)

	// Joining again is rejected.
	_, err = f.squads.JoinSquad(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoinSquadWhileInAnother(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	_, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)
	other, err := f.squads.CreateSquad(ctx, "bob", models.CreateSquadRequest{Name: "Early Birds"})
	require.NoError(t, err)

	f.addUser(t, "carol")
	_, err = f.squads.JoinSquad(ctx, "carol", other.ID)
	require.NoError(t, err)

	// Carol is in Early Birds now; she cannot join Night Owls too.
	night, err := f.squads.SearchSquads(ctx, "night", 0)
	require.NoError(t, err)
	require.Len(t, night, 1)
	_, err = f.squads.JoinSquad(ctx, "carol", night[0].ID)
	assert.ErrorIs(t, err, ErrAlreadyInSquad)
}

func TestJoinSquadCapacity(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "owner")
	squad, err := f.squads.CreateSquad(ctx, "owner", models.CreateSquadRequest{Name: "Full House"})
	require.NoError(t, err)

	for i := 1; i < models.MaxSquadMembers; i++ {
		id := fmt.Sprintf("user%d", i)
		f.addUser(t, id)
		_, err := f.squads.JoinSquad(ctx, id, squad.ID)
		require.NoError(t, err)
	}

	f.addUser(t, "latecomer")
	_, err = f.squads.JoinSquad(ctx, "latecomer", squad.ID)
	assert.ErrorIs(t, err, ErrSquadFull)

	got, err := f.squads.GetSquadByID(ctx, squad.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, models.MaxSquadMembers)
}

func TestJoinSquadConcurrentNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "owner")
	squad, err := f.squads.CreateSquad(ctx, "owner", models.CreateSquadRequest{Name: "Contended"})
	require.NoError(t, err)

	const contenders = 10
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		id := fmt.Sprintf("racer%d", i)
		f.addUser(t, id)
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.squads.JoinSquad(ctx, id, squad.ID)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSquadFull)
		}
	}
	assert.Equal(t, models.MaxSquadMembers-1, succeeded)

	got, err := f.squads.GetSquadByID(ctx, squad.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, models.MaxSquadMembers)
}

func TestLeaveSquad(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)
	_, err = f.squads.JoinSquad(ctx, "bob", squad.ID)
	require.NoError(t, err)

	require.NoError(t, f.squads.LeaveSquad(ctx, "bob", squad.ID))

	got, err := f.squads.GetSquadByID(ctx, squad.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Members)

	bob, err := f.users.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.SquadID, "leaving must clear the user's squad reference")

	// Leaving twice fails.
	err = f.squads.LeaveSquad(ctx, "bob", squad.ID)
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestOwnerCannotLeave(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)

	err = f.squads.LeaveSquad(ctx, "alice", squad.ID)
	assert.ErrorIs(t, err, ErrOwnerCannotLeave)
}

func TestDeleteSquad(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)
	_, err = f.squads.JoinSquad(ctx, "bob", squad.ID)
	require.NoError(t, err)

	// Only the owner may delete.
	err = f.squads.DeleteSquad(ctx, "bob", squad.ID)
	assert.ErrorIs(t, err, ErrNotSquadOwner)

	require.NoError(t, f.squads.DeleteSquad(ctx, "alice", squad.ID))

	_, err = f.squads.GetSquadByID(ctx, squad.ID)
	assert.ErrorIs(t, err, ErrSquadNotFound)

	for _, id := range []string{"alice", "bob"} {
		user, err := f.users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, user.SquadID, "deletion must detach every member")
	}
}

func TestUpdateSquad(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls", Bio: "old bio"})
	require.NoError(t, err)
	_, err = f.squads.JoinSquad(ctx, "bob", squad.ID)
	require.NoError(t, err)

	// Non-owner cannot update.
	newName := "Renamed Owls"
	_, err = f.squads.UpdateSquad(ctx, "bob", squad.ID, models.UpdateSquadRequest{Name: &newName})
	assert.ErrorIs(t, err, ErrNotSquadOwner)

	// Partial update: only bio changes, name stays.
	newBio := "new bio"
	updated, err := f.squads.UpdateSquad(ctx, "alice", squad.ID, models.UpdateSquadRequest{Bio: &newBio})
	require.NoError(t, err)
	assert.Equal(t, "Night Owls", updated.Name)
	assert.Equal(t, "new bio", updated.Bio)

	// Rename to a taken name fails.
	_, err = f.squads.CreateSquad(ctx, "bob", models.CreateSquadRequest{Name: "Early Birds"})
	assert.Error(t, err, "bob is already in a squad")
	f.addUser(t, "carol")
	_, err = f.squads.CreateSquad(ctx, "carol", models.CreateSquadRequest{Name: "Early Birds"})
	require.NoError(t, err)
	taken := "early BIRDS"
	_, err = f.squads.UpdateSquad(ctx, "alice", squad.ID, models.UpdateSquadRequest{Name: &taken})
	assert.ErrorIs(t, err, ErrSquadNameTaken)

	// Renaming to its own name (different case) is allowed.
	sameName := "NIGHT OWLS"
	updated, err = f.squads.UpdateSquad(ctx, "alice", squad.ID, models.UpdateSquadRequest{Name: &sameName})
	require.NoError(t, err)
	assert.Equal(t, "NIGHT OWLS", updated.Name)
}

func TestSearchSquads(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	for i, name := range []string{"Night Owls", "Owl Pellets", "Early Birds"} {
		id := fmt.Sprintf("founder%d", i)
		f.addUser(t, id)
		_, err := f.squads.CreateSquad(ctx, id, models.CreateSquadRequest{Name: name})
		require.NoError(t, err)
	}

	results, err := f.squads.SearchSquads(ctx, "OWL", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Night Owls", results[0].Name)
	assert.Equal(t, "Owl Pellets", results[1].Name)

	// Blank terms return nothing rather than everything.
	results, err = f.squads.SearchSquads(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetSquadForUserHealsStaleReference(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	alice := f.addUser(t, "alice")

	// Point alice at a squad that does not exist.
	alice.SquadID = "squad_1700000000000_deadbeef99"
	require.NoError(t, f.userRepo.Update(ctx, alice))

	squad, err := f.squads.GetSquadForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, squad)

	healed, err := f.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, healed.SquadID, "stale squad reference should be cleared")
}

func TestGetSquadByLegacyID(t *testing.T) {
	ctx := context.Background()
	f := newSquadServiceFixture(t)
	f.addUser(t, "alice")

	squad, err := f.squads.CreateSquad(ctx, "alice", models.CreateSquadRequest{Name: "Night Owls"})
	require.NoError(t, err)

	// IDs written by the historical client used "<millis>-<suffix>".
	var millis int64
	var suffix string
	_, err = fmt.Sscanf(squad.ID, "squad_%d_%s", &millis, &suffix)
	require.NoError(t, err)

	got, err := f.squads.GetSquadByID(ctx, fmt.Sprintf("%d-%s", millis, suffix))
	require.NoError(t, err)
	assert.Equal(t, squad.ID, got.ID)
}
