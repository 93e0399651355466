package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

// metricsMiddleware records counters and latencies per route. The endpoint
// label is the route template, not the raw path, to keep cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := fmt.Sprintf("%d", recorder.status)
		RequestCounter.WithLabelValues(r.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

func SetupRouter(h *Handler, redisClient redis.RedisClient, jwtSecret string) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	// Everything below requires a valid, non-revoked token.
	authed := r.NewRoute().Subrouter()
	authed.Use(auth.Middleware(redisClient, jwtSecret))

	admin := []models.Role{models.RoleAdmin}
	adminOrUser := []models.Role{models.RoleAdmin, models.RoleUser}
	adminOrMachine := []models.Role{models.RoleAdmin, models.RoleMachine}
	anyRole := []models.Role{models.RoleAdmin, models.RoleUser, models.RoleMachine}

	route := func(method, path string, handler http.HandlerFunc, roles []models.Role) {
		authed.Handle(path, auth.RequireRole(handler, roles...)).Methods(method)
	}

	// Transactions.
	route(http.MethodGet, "/transactions", h.ListTransactions, adminOrUser)
	route(http.MethodPost, "/transactions", h.CreateTransaction, adminOrUser)
	route(http.MethodPost, "/transactions/by-code", h.GetTransactionByCode, anyRole)
	route(http.MethodPut, "/transactions/confirm", h.ConfirmTransaction, anyRole)
	route(http.MethodPut, "/transactions/approve", h.ApproveTransaction, adminOrMachine)
	route(http.MethodDelete, "/transactions/cancel/{id}", h.CancelTransaction, adminOrUser)

	// Users. Admin only, including the query endpoint.
	route(http.MethodGet, "/users", h.ListUsers, admin)
	route(http.MethodPost, "/users/query", h.QueryUsers, admin)
	route(http.MethodGet, "/users/{id}", h.GetUser, admin)
	route(http.MethodDelete, "/users/{id}", h.DeleteUser, admin)
	route(http.MethodPut, "/users/{id}/balance", h.SetUserBalance, admin)

	// Products.
	route(http.MethodGet, "/products", h.ListProducts, adminOrUser)
	route(http.MethodPost, "/products", h.CreateProduct, admin)
	route(http.MethodGet, "/products/{id}", h.GetProduct, adminOrUser)
	route(http.MethodPut, "/products/{id}", h.UpdateProduct, admin)
	route(http.MethodDelete, "/products/{id}", h.DeleteProduct, admin)

	// Vending machines.
	route(http.MethodGet, "/machines", h.ListMachines, adminOrUser)
	route(http.MethodPost, "/machines", h.CreateMachine, admin)
	route(http.MethodGet, "/machines/{id}", h.GetMachine, adminOrUser)
	route(http.MethodPut, "/machines/{id}", h.UpdateMachine, admin)
	route(http.MethodDelete, "/machines/{id}", h.DeleteMachine, admin)

	// Slots.
	route(http.MethodGet, "/slots", h.ListSlots, adminOrUser)
	route(http.MethodPost, "/slots", h.CreateSlot, admin)
	route(http.MethodPost, "/slots/by-machine", h.ListSlotsByMachine, anyRole)
	route(http.MethodGet, "/slots/{id}", h.GetSlot, adminOrUser)
	route(http.MethodPut, "/slots/{id}", h.UpdateSlot, admin)
	route(http.MethodPut, "/slots/{id}/product", h.AssignProduct, admin)
	route(http.MethodDelete, "/slots/{id}", h.DeleteSlot, admin)

	return r
}

// statusRecorder captures the response status for the metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
