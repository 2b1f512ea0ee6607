package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/usercontext"
)

type fakeChildRepo struct {
	stored  *models.ChildProfile
	upserts int
}

func (f *fakeChildRepo) GetByUser(clerkID string) (*models.ChildProfile, error) {
	return f.stored, nil
}

func (f *fakeChildRepo) Upsert(profile *models.ChildProfile) error {
	f.upserts++
	cp := *profile
	f.stored = &cp
	return nil
}

func (f *fakeChildRepo) Delete(clerkID string) error {
	f.stored = nil
	return nil
}

func newChildTestApp(repo *fakeChildRepo) *fiber.App {
	cc := NewChildController(repo)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     1,
			ClerkID:    "user_1",
			IsLoggedIn: true,
		})
		return c.Next()
	})
	app.Put("/child", cc.HandlePutChild)
	return app
}

func TestHandlePutChild_ValidationFailureIsBadRequest(t *testing.T) {
	repo := &fakeChildRepo{}
	app := newChildTestApp(repo)

	// Name is required; an unknown gender value also fails validation.
	req := httptest.NewRequest("PUT", "/child", strings.NewReader(`{"gender":"outro"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, repo.upserts)
}

func TestHandlePutChild_SavesValidProfile(t *testing.T) {
	repo := &fakeChildRepo{}
	app := newChildTestApp(repo)

	req := httptest.NewRequest("PUT", "/child", strings.NewReader(`{"name":"Alice","gender":"menina"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, repo.stored)
	assert.Equal(t, "user_1", repo.stored.ClerkID)
	assert.Equal(t, "Alice", repo.stored.Name)
}
