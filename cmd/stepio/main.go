package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/stepio-app/stepio-server/internal/pkg/cache"
	"github.com/stepio-app/stepio-server/internal/pkg/database"
	"github.com/stepio-app/stepio-server/internal/pkg/env"
	"github.com/stepio-app/stepio-server/internal/pkg/metrics/counter"
	"github.com/stepio-app/stepio-server/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Find the project root for static docs, whether started from the
	// repo root or from cmd/stepio.
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "stepio-server",
		BodyLimit: 1 << 20, // 1 MiB, JSON payloads only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	})
	app.Get("/metrics", metricsAuth, monitor.New())
	app.Get("/metrics/billing", metricsAuth, func(c *fiber.Ctx) error {
		snapshot, err := counter.Snapshot()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "Failed to read billing counters",
			})
		}
		return c.JSON(snapshot)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
