package middleware

import (
	"context"
	"log"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/app/repository"
	"github.com/stepio-app/stepio-server/internal/pkg/env"
	"github.com/stepio-app/stepio-server/internal/pkg/usercontext"
)

// TokenVerifier checks a bearer token and returns the external user id
// it was issued for. Controllers never see raw tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type clerkVerifier struct{}

func (clerkVerifier) Verify(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// NewClerkVerifier returns the production verifier backed by the Clerk
// SDK. SetupClerk must have run first.
func NewClerkVerifier() TokenVerifier {
	return clerkVerifier{}
}

// SetupClerk configures the Clerk SDK from the environment.
func SetupClerk() {
	clerk.SetKey(env.GetEnv("CLERK_SECRET_KEY", ""))
}

// RequireAuth authenticates API requests via bearer token and loads the
// user context. Unknown subjects get a user row provisioned on first
// contact, so the client never has to call a separate signup endpoint.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing bearer token",
			})
		}

		clerkID, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.EnsureByClerkID(clerkID)
		if err != nil {
			log.Printf("auth middleware: failed to load user %s: %v", clerkID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "User lookup failed",
			})
		}

		userCtx := usercontext.UserContext{
			UserID:      user.ID,
			ClerkID:     user.ClerkID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			IsLoggedIn:  true,
		}
		c.Locals(usercontext.KeyUserContext, userCtx)
		c.Locals(usercontext.KeyClerkID, user.ClerkID)
		c.Locals(usercontext.KeyUserID, user.ID)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
