package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ekaterinavolkova/budget-sync-app/internal/database"
	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/store"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterUserHandler регистрирует нового пользователя.
func RegisterUserHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var user models.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}
		if user.Email == "" || user.Password == "" || user.Name == "" {
			http.Error(w, "Все поля должны быть заполнены", http.StatusBadRequest)
			return
		}

		if err := database.RegisterUser(r.Context(), pool, &user); err != nil {
			log.Error().Err(err).Msg("ошибка регистрации пользователя")
			http.Error(w, "Не удалось зарегистрировать пользователя", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(user)
	}
}

// LoginHandler проверяет учетные данные. После успешного входа асинхронно
// прогревается кэш пользователя; сбой прогрева вход не блокирует и не валит.
func LoginHandler(pool *pgxpool.Pool, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials models.User
		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}

		user, err := database.AuthenticateUser(r.Context(), pool, credentials.Email, credentials.Password)
		if err != nil {
			http.Error(w, "Неверный email или пароль", http.StatusUnauthorized)
			return
		}

		go st.WarmUser(context.Background(), user.ID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user)
	}
}

// LinkHandler сохраняет привязку пользователя к агрегатору (токен доступа
// от завершенной сессии линковки). По сохраненным привязкам работает
// фоновая синхронизация.
func LinkHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var item models.UserItem
		var body struct {
			UserID      string  `json:"user_id"`
			AccessToken string  `json:"access_token"`
			Institution *string `json:"institution"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}
		if body.UserID == "" || body.AccessToken == "" {
			http.Error(w, "Нужны user_id и access_token", http.StatusBadRequest)
			return
		}

		item = models.UserItem{UserID: body.UserID, AccessToken: body.AccessToken, Institution: body.Institution}
		if err := database.SaveUserItem(r.Context(), pool, &item); err != nil {
			log.Error().Err(err).Msg("ошибка сохранения привязки")
			http.Error(w, "Не удалось сохранить привязку", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(item)
	}
}
