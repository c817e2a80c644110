package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/repo/memory"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

// Both implementations must behave identically; the services are tested
// against the memory one.
func implementations(t *testing.T) map[string]func() repo.Repos {
	return map[string]func() repo.Repos{
		"gorm":   func() repo.Repos { return repo.NewGorm(testutil.NewInMemoryDB(t)) },
		"memory": memory.New,
	}
}

func TestUsers(t *testing.T) {
	for name, newRepos := range implementations(t) {
		newRepos := newRepos
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			users := newRepos().Users

			alice := &models.User{Username: "alice", PasswordHash: "h1"}
			require.NoError(t, users.Insert(ctx, alice))
			require.NotZero(t, alice.ID)

			err := users.Insert(ctx, &models.User{Username: "alice", PasswordHash: "h2"})
			assert.ErrorIs(t, err, repo.ErrDuplicate)

			got, err := users.FindByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, alice.ID, got.ID)

			_, err = users.FindByUsername(ctx, "Alice")
			assert.ErrorIs(t, err, repo.ErrNotFound, "usernames are case-sensitive")

			bob := &models.User{Username: "bob", PasswordHash: "h3"}
			require.NoError(t, users.Insert(ctx, bob))

			bob.Username = "alice"
			assert.ErrorIs(t, users.Update(ctx, bob), repo.ErrDuplicate)

			bob.Username = "robert"
			bob.IsAdmin = true
			require.NoError(t, users.Update(ctx, bob))
			got, err = users.FindByID(ctx, bob.ID)
			require.NoError(t, err)
			assert.Equal(t, "robert", got.Username)
			assert.True(t, got.IsAdmin)

			list, err := users.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, alice.ID, list[0].ID)

			require.NoError(t, users.Delete(ctx, alice.ID))
			assert.ErrorIs(t, users.Delete(ctx, alice.ID), repo.ErrNotFound)
			_, err = users.FindByID(ctx, alice.ID)
			assert.ErrorIs(t, err, repo.ErrNotFound)
		})
	}
}

func seedProducts(t *testing.T, products repo.ProductRepository) []models.Product {
	t.Helper()
	ctx := context.Background()
	rows := []models.Product{
		{Name: "Red shirt", Description: "cotton", Price: 10, Sales: 5, Category: "shirts"},
		{Name: "Blue shirt", Description: "linen", Price: 12, Sales: 9, Category: "shirts"},
		{Name: "Mug", Description: "ceramic, holds coffee", Price: 4.5, Sales: 9, Category: "home"},
		{Name: "Lamp", Description: "desk lamp", Price: 30, Sales: 0, Category: "home"},
		{Name: "Socks", Description: "wool", Price: 3, Sales: 1, Category: "sanpham1"},
	}
	for i := range rows {
		require.NoError(t, products.Insert(ctx, &rows[i]))
	}
	return rows
}

func TestProducts(t *testing.T) {
	for name, newRepos := range implementations(t) {
		newRepos := newRepos
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			products := newRepos().Products
			rows := seedProducts(t, products)

			total, items, err := products.List(ctx, repo.ProductFilter{}, 2, 2)
			require.NoError(t, err)
			assert.EqualValues(t, 5, total)
			require.Len(t, items, 2)
			assert.Equal(t, rows[2].ID, items[0].ID)
			assert.Equal(t, rows[3].ID, items[1].ID)

			total, items, err = products.List(ctx, repo.ProductFilter{Category: "home"}, 0, 8)
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			assert.Equal(t, "Mug", items[0].Name)

			total, items, err = products.List(ctx, repo.ProductFilter{Category: "Home"}, 0, 8)
			require.NoError(t, err)
			assert.Zero(t, total, "category filter is exact")
			assert.Empty(t, items)

			top, err := products.Top(ctx, 3)
			require.NoError(t, err)
			require.Len(t, top, 3)
			assert.Equal(t, []string{"Blue shirt", "Mug", "Red shirt"},
				[]string{top[0].Name, top[1].Name, top[2].Name}, "ties broken by id")

			cats, err := products.Categories(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"home", "sanpham1", "shirts"}, cats)

			total, items, err = products.Search(ctx, "COFFEE", 0, 8)
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			assert.Equal(t, "Mug", items[0].Name)

			all, err := products.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 5)

			mug := rows[2]
			mug.Price = 5
			require.NoError(t, products.Update(ctx, &mug))
			got, err := products.FindByID(ctx, mug.ID)
			require.NoError(t, err)
			assert.InDelta(t, 5.0, got.Price, 1e-9)

			require.NoError(t, products.Delete(ctx, mug.ID))
			assert.ErrorIs(t, products.Delete(ctx, mug.ID), repo.ErrNotFound)
			_, err = products.FindByID(ctx, 9999)
			assert.ErrorIs(t, err, repo.ErrNotFound)
		})
	}
}

func TestSessions(t *testing.T) {
	for name, newRepos := range implementations(t) {
		newRepos := newRepos
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sessions := newRepos().Sessions
			exp := time.Now().Add(time.Hour).UTC()

			a := &models.Session{JTI: "jti-a", UserID: 1, ExpiresAt: exp}
			b := &models.Session{JTI: "jti-b", UserID: 1, ExpiresAt: exp}
			c := &models.Session{JTI: "jti-c", UserID: 2, ExpiresAt: exp}
			for _, s := range []*models.Session{a, b, c} {
				require.NoError(t, sessions.Insert(ctx, s))
			}

			got, err := sessions.FindByJTI(ctx, "jti-a")
			require.NoError(t, err)
			assert.True(t, got.Active(time.Now()))

			require.NoError(t, sessions.Revoke(ctx, "jti-a"))
			require.NoError(t, sessions.Revoke(ctx, "jti-a"))
			require.NoError(t, sessions.Revoke(ctx, "unknown"))
			got, err = sessions.FindByJTI(ctx, "jti-a")
			require.NoError(t, err)
			assert.True(t, got.Revoked)

			require.NoError(t, sessions.RevokeUser(ctx, 1))
			got, err = sessions.FindByJTI(ctx, "jti-b")
			require.NoError(t, err)
			assert.False(t, got.Active(time.Now()))
			got, err = sessions.FindByJTI(ctx, "jti-c")
			require.NoError(t, err)
			assert.True(t, got.Active(time.Now()))

			_, err = sessions.FindByJTI(ctx, "missing")
			assert.ErrorIs(t, err, repo.ErrNotFound)
		})
	}
}

func TestSessions_DeleteEnded(t *testing.T) {
	for name, newRepos := range implementations(t) {
		newRepos := newRepos
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sessions := newRepos().Sessions
			now := time.Now().UTC()

			rows := []*models.Session{
				{JTI: "active", UserID: 1, ExpiresAt: now.Add(time.Hour)},
				{JTI: "revoked", UserID: 1, ExpiresAt: now.Add(time.Hour)},
				{JTI: "expired", UserID: 2, ExpiresAt: now.Add(-time.Minute)},
				{JTI: "expires-now", UserID: 2, ExpiresAt: now},
			}
			for _, s := range rows {
				require.NoError(t, sessions.Insert(ctx, s))
			}
			require.NoError(t, sessions.Revoke(ctx, "revoked"))

			n, err := sessions.DeleteEnded(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			_, err = sessions.FindByJTI(ctx, "active")
			require.NoError(t, err)
			for _, jti := range []string{"revoked", "expired", "expires-now"} {
				_, err = sessions.FindByJTI(ctx, jti)
				assert.ErrorIs(t, err, repo.ErrNotFound, jti)
			}

			n, err = sessions.DeleteEnded(ctx, now)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
