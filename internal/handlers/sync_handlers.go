package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
)

// TriggerSyncHandler запускает проход синхронизации пользователя.
// Проблемы отдельных записей не делают ответ ошибкой: вызывающий всегда
// получает SyncResult со счетчиками и списком пропусков. Жесткой ошибкой
// отвечают только сбои уровня прохода: протухший токен и исчерпанные повторы.
func TriggerSyncHandler(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var body struct {
			UserID      string `json:"user_id"`
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Некорректный формат ввода", http.StatusBadRequest)
			return
		}
		if body.UserID == "" || body.AccessToken == "" {
			http.Error(w, "Нужны user_id и access_token", http.StatusBadRequest)
			return
		}

		result, err := orch.SyncUser(r.Context(), body.UserID, body.AccessToken)
		if err != nil {
			if errors.Is(err, syncer.ErrInvalidToken) {
				http.Error(w, "Токен доступа недействителен", http.StatusUnauthorized)
				return
			}
			log.Error().Err(err).Str("user_id", body.UserID).Msg("проход синхронизации завершился ошибкой")
			http.Error(w, "Синхронизация не удалась", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// ChangesHandler отдает записи, измененные после водяного знака.
// since — RFC3339; пустой параметр означает выборку с нулевого времени.
func ChangesHandler(changes *syncer.ChangesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Нужен user_id", http.StatusBadRequest)
			return
		}

		watermark := time.Time{}
		if since := r.URL.Query().Get("since"); since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				http.Error(w, "Некорректный формат since, нужен RFC3339", http.StatusBadRequest)
				return
			}
			watermark = parsed
		}

		result, err := changes.GetChangesSince(r.Context(), userID, watermark)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("ошибка выборки изменений")
			http.Error(w, "Не удалось получить изменения", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
