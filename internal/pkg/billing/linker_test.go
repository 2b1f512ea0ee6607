package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepio-app/stepio-server/app/models"
)

func TestLinkerResolveOrCreate_CreatesOnce(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	linker := NewLinker(repo, gw)

	first, err := linker.ResolveOrCreate(context.Background(), "user_1", "mom@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_fake_1", first)

	// Second call hits the stored link, no further external calls.
	second, err := linker.ResolveOrCreate(context.Background(), "user_1", "mom@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, gw.created, 1)
}

func TestLinkerResolveOrCreate_LostRaceAdoptsWinner(t *testing.T) {
	repo := newFakeRepo()
	repo.linkSniped = true
	repo.snipeWith = "cus_winner"
	gw := newFakeGateway()
	linker := NewLinker(repo, gw)

	got, err := linker.ResolveOrCreate(context.Background(), "user_1", "")
	require.NoError(t, err)
	// The freshly created customer is discarded in favor of the
	// concurrently committed link.
	assert.Equal(t, "cus_winner", got)

	stored, err := repo.GetBillingAccountByUser("user_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "cus_winner", stored.StripeCustomerID)
}

func TestLinkerResolveOrCreate_ExistingLinkIsImmutable(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_orig"}
	gw := newFakeGateway()
	linker := NewLinker(repo, gw)

	got, err := linker.ResolveOrCreate(context.Background(), "user_1", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_orig", got)
	assert.Empty(t, gw.created)
}

func TestLinkerResolveOrCreate_GatewayFailure(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway()
	gw.failCreate = true
	linker := NewLinker(repo, gw)

	_, err := linker.ResolveOrCreate(context.Background(), "user_1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternalService))

	// No partial link persisted.
	stored, err := repo.GetBillingAccountByUser("user_1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
