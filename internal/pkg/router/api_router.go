package router

import (
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/stepio-app/stepio-server/app/controllers"
	"github.com/stepio-app/stepio-server/app/repository"
	"github.com/stepio-app/stepio-server/internal/pkg/billing"
	"github.com/stepio-app/stepio-server/internal/pkg/cache"
	"github.com/stepio-app/stepio-server/internal/pkg/constants"
	"github.com/stepio-app/stepio-server/internal/pkg/database"
	"github.com/stepio-app/stepio-server/internal/pkg/env"
	"github.com/stepio-app/stepio-server/internal/pkg/middleware"
	"github.com/stepio-app/stepio-server/internal/pkg/reminder"
)

// appDeps holds the wired controllers shared between the API and
// webhook route groups.
type appDeps struct {
	billing      *controllers.BillingController
	profile      *controllers.ProfileController
	child        *controllers.ChildController
	medications  *controllers.MedicationController
	appointments *controllers.AppointmentController
	milestones   *controllers.MilestoneController
	dailyLogs    *controllers.DailyLogController
	export       *controllers.ExportController
	verifier     middleware.TokenVerifier
}

var (
	depsOnce sync.Once
	deps     *appDeps
)

func getDeps() *appDeps {
	depsOnce.Do(buildDeps)
	return deps
}

// buildDeps wires the billing core and controllers. Both entitlement
// source adapters are constructed when their credentials are present;
// BILLING_PROVIDER selects which one serves the sync endpoint.
func buildDeps() {
	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	billingRepo := billing.NewRepository(db)
	planCache := billing.NewRedisPlanCache(cache.GetClient())
	reconciler := billing.NewReconciler(billingRepo, planCache, nil)

	var (
		gateway      billing.StripeGateway
		linker       *billing.Linker
		stripeSource *billing.StripeSource
		rcSource     *billing.RevenueCatSource
		source       billing.EntitlementSource
	)

	if env.GetEnv("STRIPE_SECRET_KEY", "") != "" {
		gateway = billing.NewStripeGatewayFromEnv()
		linker = billing.NewLinker(billingRepo, gateway)
		stripeSource = billing.NewStripeSourceFromEnv(billingRepo, gateway, reconciler)
	}
	if env.GetEnv("REVENUECAT_API_KEY", "") != "" {
		rcSource = billing.NewRevenueCatSourceFromEnv(reconciler)
	}

	switch strings.ToLower(env.GetEnv("BILLING_PROVIDER", "stripe")) {
	case "revenuecat":
		source = rcSource
	default:
		source = stripeSource
	}
	if source == nil {
		// No provider configured: serve stored plans, sync answers 503.
		source = noSource{reconciler}
	}

	middleware.SetupClerk()

	reminders := reminder.NewRedisScheduler(cache.GetClient())

	deps = &appDeps{
		billing: controllers.NewBillingController(
			billingRepo, linker, reconciler, source, stripeSource, rcSource, gateway,
			env.GetEnv("REVENUECAT_WEBHOOK_SECRET", ""),
		),
		profile:      controllers.NewProfileController(repos.User, reconciler),
		child:        controllers.NewChildController(repos.ChildProfile),
		medications:  controllers.NewMedicationController(repos.Medication, reminders),
		appointments: controllers.NewAppointmentController(repos.Appointment, reconciler, reminders),
		milestones:   controllers.NewMilestoneController(repos.Milestone, reconciler),
		dailyLogs:    controllers.NewDailyLogController(repos.DailyLog, reconciler),
		export:       controllers.NewExportController(repos.DailyLog, reconciler),
		verifier:     middleware.NewClerkVerifier(),
	}
}

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	d := getDeps()

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	authed := api.Group("", middleware.RequireAuth(d.verifier))

	authed.Get(constants.ProfileRoute, d.profile.HandleGetProfile)

	authed.Get(constants.ChildRoute, d.child.HandleGetChild)
	authed.Put(constants.ChildRoute, d.child.HandlePutChild)
	authed.Delete(constants.ChildRoute, d.child.HandleDeleteChild)

	authed.Get(constants.MedicationsRoute, d.medications.HandleListMedications)
	authed.Post(constants.MedicationsRoute, d.medications.HandleCreateMedication)
	authed.Put(constants.MedicationsRoute+"/:id", d.medications.HandleUpdateMedication)
	authed.Delete(constants.MedicationsRoute+"/:id", d.medications.HandleDeleteMedication)

	authed.Get(constants.AppointmentsRoute, d.appointments.HandleListAppointments)
	authed.Post(constants.AppointmentsRoute, d.appointments.HandleCreateAppointment)
	authed.Put(constants.AppointmentsRoute+"/:id", d.appointments.HandleUpdateAppointment)
	authed.Delete(constants.AppointmentsRoute+"/:id", d.appointments.HandleDeleteAppointment)

	authed.Get(constants.MilestonesRoute, d.milestones.HandleListMilestones)
	authed.Post(constants.MilestonesRoute, d.milestones.HandleCreateMilestone)
	authed.Put(constants.MilestonesRoute+"/:id", d.milestones.HandleUpdateMilestone)
	authed.Delete(constants.MilestonesRoute+"/:id", d.milestones.HandleDeleteMilestone)

	authed.Get(constants.DailyLogsRoute, d.dailyLogs.HandleListDailyLogs)
	authed.Post(constants.DailyLogsRoute, d.dailyLogs.HandleSaveDailyLog)
	authed.Delete(constants.DailyLogsRoute+"/:id", d.dailyLogs.HandleDeleteDailyLog)

	authed.Get(constants.ExportDailyLogsRoute, d.export.HandleExportDailyLogsCSV)

	billingGroup := authed.Group(constants.BillingRoute)
	billingGroup.Post(constants.CheckoutSessionRoute, d.billing.HandleCreateCheckoutSession)
	billingGroup.Post(constants.PortalSessionRoute, d.billing.HandleCreatePortalSession)
	billingGroup.Post(constants.SyncEntitlementsRoute, d.billing.HandleSyncEntitlements)
	billingGroup.Get(constants.PlanRoute, d.billing.HandleGetPlan)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
