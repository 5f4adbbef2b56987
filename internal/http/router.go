package http

import (
	"net/http"

	"farmfi-backend/internal/handlers"
	"farmfi-backend/internal/middleware"
	"farmfi-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	TOTP      *handlers.TOTPHandler
	Employees *handlers.EmployeeHandler
	LoginLogs *handlers.LoginLogHandler
	Fields    *handlers.FieldHandler
	Crops     *handlers.CropHandler
	Images    *handlers.FieldImageHandler
	Analytics *handlers.AnalyticsHandler
	Reports   *handlers.ReportHandler
	WS        *handlers.WSHandler
	Health    *handlers.HealthHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log), middleware.PanicRecovery(log), middleware.MetricsMiddleware)

	// Probes and metrics, no authentication
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/api/auth/register", h.Auth.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/api/auth/locations", h.Auth.Locations).Methods("GET")

	// Websocket authenticates itself from the token query parameter
	r.HandleFunc("/api/ws", h.WS.Serve).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	farmer := []string{models.RoleFarmer}
	employee := []string{models.RoleEmployee}
	admin := []string{models.RoleAdmin}
	staff := []string{models.RoleEmployee, models.RoleAdmin}
	writers := []string{models.RoleFarmer, models.RoleEmployee}

	// Profile
	api.HandleFunc("/auth/profile", h.Auth.Profile).Methods("GET")
	api.HandleFunc("/auth/profile", h.Auth.UpdateProfile).Methods("PUT")
	api.HandleFunc("/auth/password", h.Auth.ChangePassword).Methods("PUT")

	// Admin two factor
	api.Handle("/auth/2fa/setup", role(h.TOTP.SetupTOTP, admin...)).Methods("POST")
	api.Handle("/auth/2fa/enable", role(h.TOTP.EnableTOTP, admin...)).Methods("POST")
	api.Handle("/auth/2fa/disable", role(h.TOTP.DisableTOTP, admin...)).Methods("POST")

	// Fields
	api.HandleFunc("/fields", h.Fields.List).Methods("GET")
	api.Handle("/fields", role(h.Fields.Create, farmer...)).Methods("POST")
	api.HandleFunc("/fields/{id:[0-9]+}", h.Fields.Get).Methods("GET")
	api.Handle("/fields/{id:[0-9]+}", role(h.Fields.Update, farmer...)).Methods("PUT")
	api.Handle("/fields/{id:[0-9]+}", role(h.Fields.Delete, farmer...)).Methods("DELETE")
	api.Handle("/fields/{id:[0-9]+}/verify", role(h.Fields.Verify, employee...)).Methods("POST")
	api.Handle("/fields/{id:[0-9]+}/approve", role(h.Fields.Approve, admin...)).Methods("POST")
	api.Handle("/fields/{id:[0-9]+}/reject", role(h.Fields.Reject, staff...)).Methods("POST")
	api.HandleFunc("/fields/{id:[0-9]+}/history", h.Fields.History).Methods("GET")

	// Crop records
	api.HandleFunc("/crops/catalog", h.Crops.Catalog).Methods("GET")
	api.HandleFunc("/crops/land-info", h.Crops.LandInfo).Methods("GET")
	api.Handle("/crops/import", role(h.Crops.Import, staff...)).Methods("POST")
	api.HandleFunc("/crops", h.Crops.List).Methods("GET")
	api.Handle("/crops", role(h.Crops.Create, writers...)).Methods("POST")
	api.HandleFunc("/crops/{id:[0-9]+}", h.Crops.Get).Methods("GET")
	api.Handle("/crops/{id:[0-9]+}", role(h.Crops.Update, writers...)).Methods("PUT")
	api.Handle("/crops/{id:[0-9]+}", role(h.Crops.Delete, writers...)).Methods("DELETE")
	api.Handle("/crops/{id:[0-9]+}/verify", role(h.Crops.Verify, employee...)).Methods("POST")
	api.Handle("/crops/{id:[0-9]+}/approve", role(h.Crops.Approve, admin...)).Methods("POST")
	api.Handle("/crops/{id:[0-9]+}/reject", role(h.Crops.Reject, staff...)).Methods("POST")
	api.HandleFunc("/crops/{id:[0-9]+}/history", h.Crops.History).Methods("GET")

	// Analytics, export first so it is not taken for a report name
	api.Handle("/analytics/export.csv", role(h.Analytics.ExportCSV, staff...)).Methods("GET")
	api.HandleFunc("/analytics/overview", h.Analytics.Overview).Methods("GET")
	api.HandleFunc("/analytics/{report}", h.Analytics.Series).Methods("GET")

	// Reports, farmers are limited to their own statement by the service
	api.HandleFunc("/reports/farmer/{id:[0-9]+}.pdf", h.Reports.FarmerPDF).Methods("GET")

	// Disease prediction
	api.Handle("/field-images/upload-and-predict", role(h.Images.UploadAndPredict, farmer...)).Methods("POST")
	api.Handle("/field-images/history", role(h.Images.History, farmer...)).Methods("GET")
	api.HandleFunc("/field-images/{id:[0-9]+}/view", h.Images.View).Methods("GET")

	// Staff management
	api.Handle("/employees", role(h.Employees.List, admin...)).Methods("GET")
	api.Handle("/employees", role(h.Employees.Create, admin...)).Methods("POST")
	api.Handle("/admin/login-logs", role(h.LoginLogs.ListLoginLogs, admin...)).Methods("GET")

	return r
}

func role(h http.HandlerFunc, roles ...string) http.Handler {
	return middleware.RequireRole(roles...)(h)
}
