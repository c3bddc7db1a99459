package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/store"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// CreateGoalHandler создает новую цель.
func CreateGoalHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var goal models.Goal
		if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}
		if goal.UserID == "" || goal.Name == "" || !goal.TargetAmount.IsPositive() {
			http.Error(w, "Нужны user_id, name и положительная target_amount", http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		goal.ID = uuid.NewString()
		goal.CurrentAmount = decimal.Zero
		goal.IsCompleted = false
		goal.CompletedAt = nil
		goal.UpdatedAt = now
		goal.CreatedAt = now

		if err := st.CreateGoal(r.Context(), &goal); err != nil {
			log.Error().Err(err).Msg("ошибка создания цели")
			http.Error(w, "Не удалось создать цель", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(goal)
	}
}

// GetGoalHandler извлекает цель по ID.
func GetGoalHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		goalID := mux.Vars(r)["id"]

		goal, err := st.GetGoalByID(r.Context(), goalID)
		if err != nil {
			http.Error(w, "Цель не найдена", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(goal)
	}
}

// GetAllGoalsHandler извлекает все цели пользователя.
func GetAllGoalsHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Нужен user_id", http.StatusBadRequest)
			return
		}

		goals, err := st.GoalsByUser(r.Context(), userID)
		if err != nil {
			log.Error().Err(err).Msg("ошибка получения целей")
			http.Error(w, "Не удалось получить цели", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(goals)
	}
}

// ContributeGoalHandler прибавляет взнос к цели через атомарный инкремент
// и возвращает обновленную накопленную сумму.
func ContributeGoalHandler(updater *syncer.ProgressUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		goalID := mux.Vars(r)["id"]

		var body struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}
		if body.Amount.IsZero() {
			http.Error(w, "Сумма взноса не может быть нулевой", http.StatusBadRequest)
			return
		}

		current, err := updater.ContributeToGoal(r.Context(), goalID, body.Amount)
		if err != nil {
			log.Error().Err(err).Str("goal_id", goalID).Msg("ошибка взноса в цель")
			http.Error(w, "Не удалось применить взнос", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"goal_id": goalID, "current_amount": current})
	}
}
