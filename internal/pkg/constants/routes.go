package constants

// Static route constants
const (
	APIRoute               = "/api"
	ProfileRoute           = "/profile"
	ChildRoute             = "/child"
	MedicationsRoute       = "/medications"
	AppointmentsRoute      = "/appointments"
	MilestonesRoute        = "/milestones"
	DailyLogsRoute         = "/daily-logs"
	ExportDailyLogsRoute   = "/export/daily-logs.csv"
	BillingRoute           = "/billing"
	CheckoutSessionRoute   = "/create-checkout-session"
	PortalSessionRoute     = "/create-portal-session"
	SyncEntitlementsRoute  = "/sync-entitlements"
	PlanRoute              = "/plan"
	StripeWebhookRoute     = "/webhook"
	RevenueCatWebhookRoute = "/webhook/revenuecat"
)
