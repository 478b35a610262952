package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Transactions *TransactionHandler
	Market       *MarketHandler
	Portfolio    *PortfolioHandler
	Tasks        *TaskHandler
	// Health reports whether storage is reachable.
	Health func() error
	Logger *zap.Logger
}

// NewRouter registers every route under /api plus /health and /swagger/.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()
	if h.Logger != nil {
		router.Use(loggingMiddleware(h.Logger))
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			if err := h.Health(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "folio"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions", h.Transactions.HandleTransactions).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/transactions/{id}", h.Transactions.HandleTransaction).Methods(http.MethodGet, http.MethodDelete)

	api.HandleFunc("/tickers", h.Market.HandleTickers).Methods(http.MethodGet)
	api.HandleFunc("/tickers/refresh", h.Market.HandleRefreshTickers).Methods(http.MethodPost)
	api.HandleFunc("/prices", h.Market.HandlePrices).Methods(http.MethodGet)
	api.HandleFunc("/prices/refresh", h.Market.HandleRefreshPrices).Methods(http.MethodPost)

	api.HandleFunc("/positions", h.Portfolio.HandlePositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/snapshot", h.Portfolio.HandleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/positions/rebuild", h.Portfolio.HandleRebuildPositions).Methods(http.MethodPost)
	api.HandleFunc("/portfolio/history", h.Portfolio.HandleHistory).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/history/rebuild", h.Portfolio.HandleRebuildHistory).Methods(http.MethodPost)
	api.HandleFunc("/portfolio/weights", h.Portfolio.HandleWeights).Methods(http.MethodGet)
	api.HandleFunc("/portfolio/stats", h.Portfolio.HandleStats).Methods(http.MethodGet)

	api.HandleFunc("/tasks/{id}", h.Tasks.HandleTask).Methods(http.MethodGet)

	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return router
}

// CORS wraps the whole router so preflight requests are answered before
// route matching.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status))
		})
	}
}
