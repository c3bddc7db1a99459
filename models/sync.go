package models

import "time"

// SyncError — ошибка уровня отдельной записи внутри прохода синхронизации.
// RecordRef содержит достаточно контекста, чтобы запись можно было перегнать вручную.
type SyncError struct {
	RecordRef string `json:"record_ref"`
	Reason    string `json:"reason"`
}

// SyncResult — итог одного прохода синхронизации. Ошибки отдельных записей
// не прерывают проход и попадают сюда, а не наружу.
type SyncResult struct {
	CreatedCount int         `json:"created_count"`
	UpdatedCount int         `json:"updated_count"`
	SkippedCount int         `json:"skipped_count"`
	Errors       []SyncError `json:"errors,omitempty"`
}

func (r *SyncResult) AddError(ref, reason string) {
	r.Errors = append(r.Errors, SyncError{RecordRef: ref, Reason: reason})
}

// Changes — записи, изменившиеся после водяного знака. AsOf — серверное время
// выборки, клиент использует его как водяной знак следующего запроса.
type Changes struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
	Goals        []Goal        `json:"goals"`
	AsOf         time.Time     `json:"as_of"`
}
