package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Friiyous/reseau-social/internal/models"
)

type fakeUsers struct {
	users map[int64]*models.User
	err   error
	calls int
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func TestResolve(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, FirstName: "Awa", LastName: "Kone", Username: "awa", District: "Korhogo"},
		2: {ID: 2, Username: "soro"},
		3: {ID: 3},
	}}
	d := New(users, zerolog.Nop())
	ctx := context.Background()

	p := d.Resolve(ctx, 1)
	assert.True(t, p.Exists)
	assert.Equal(t, "Awa Kone", p.DisplayName)
	assert.Equal(t, "Korhogo", p.District)

	assert.Equal(t, "soro", d.Resolve(ctx, 2).DisplayName)
	assert.Equal(t, UnknownUser, d.Resolve(ctx, 3).DisplayName)

	missing := d.Resolve(ctx, 42)
	assert.False(t, missing.Exists)
	assert.Equal(t, int64(42), missing.ID)
	assert.Equal(t, UnknownUser, missing.DisplayName)
}

func TestResolveFailsSoft(t *testing.T) {
	d := New(&fakeUsers{err: errors.New("connection refused")}, zerolog.Nop())

	p := d.Resolve(context.Background(), 7)
	assert.False(t, p.Exists)
	assert.Equal(t, UnknownUser, p.DisplayName)
}

func TestResolveManyLooksUpOnce(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, Username: "a"},
		2: {ID: 2, Username: "b"},
	}}
	d := New(users, zerolog.Nop())

	profiles := d.ResolveMany(context.Background(), 1, 2, 1, 2, 1)
	assert.Len(t, profiles, 2)
	assert.Equal(t, 2, users.calls)
	assert.Equal(t, "b", profiles[2].DisplayName)
}
