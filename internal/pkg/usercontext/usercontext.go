package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated user for a request
type UserContext struct {
	UserID      uint   `json:"user_id"`
	ClerkID     string `json:"clerk_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsLoggedIn  bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetClerkID returns the current user's Clerk id, or empty string if not logged in
func GetClerkID(c *fiber.Ctx) string {
	return GetUserContext(c).ClerkID
}
