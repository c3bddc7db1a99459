package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/store"
)

// GetAccountsHandler извлекает счета пользователя (сквозь кэш).
func GetAccountsHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Нужен user_id", http.StatusBadRequest)
			return
		}

		accounts, err := st.AccountsByUser(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Msg("ошибка получения счетов")
			http.Error(w, "Не удалось получить счета", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(accounts)
	}
}

// GetTransactionsHandler извлекает последние транзакции пользователя (сквозь кэш).
func GetTransactionsHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Нужен user_id", http.StatusBadRequest)
			return
		}

		txs, err := st.TransactionsByUser(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Msg("ошибка получения транзакций")
			http.Error(w, "Не удалось получить транзакции", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(txs)
	}
}
