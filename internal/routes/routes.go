package routes

import (
	"net/http"

	"github.com/ekaterinavolkova/budget-sync-app/internal/handlers"
	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/store"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SetupRouter собирает маршруты поверх готовых зависимостей.
func SetupRouter(
	pool *pgxpool.Pool,
	st *store.Store,
	orch *syncer.Orchestrator,
	changes *syncer.ChangesService,
	updater *syncer.ProgressUpdater,
	log zerolog.Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggerMiddleware(log))

	r.HandleFunc("/api/register", handlers.RegisterUserHandler(pool)).Methods("POST")
	r.HandleFunc("/api/login", handlers.LoginHandler(pool, st)).Methods("POST")
	r.HandleFunc("/api/link", handlers.LinkHandler(pool)).Methods("POST")

	r.HandleFunc("/api/sync", handlers.TriggerSyncHandler(orch)).Methods("POST")
	r.HandleFunc("/api/changes", handlers.ChangesHandler(changes)).Methods("GET")

	r.HandleFunc("/api/accounts", handlers.GetAccountsHandler(st)).Methods("GET")
	r.HandleFunc("/api/transactions", handlers.GetTransactionsHandler(st)).Methods("GET")

	r.HandleFunc("/api/goals", handlers.CreateGoalHandler(st)).Methods("POST")
	r.HandleFunc("/api/goals", handlers.GetAllGoalsHandler(st)).Methods("GET")
	r.HandleFunc("/api/goals/{id}", handlers.GetGoalHandler(st)).Methods("GET")
	r.HandleFunc("/api/goals/{id}/contribute", handlers.ContributeGoalHandler(updater)).Methods("POST")

	return r
}

// loggerMiddleware кладет логгер в контекст каждого запроса.
func loggerMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithContext(r.Context(), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
