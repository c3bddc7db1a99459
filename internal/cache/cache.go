package cache

import (
	"sync"
	"time"
)

// Collection — коллекция сущностей, кэшируемая отдельно для каждого пользователя.
type Collection string

const (
	Accounts     Collection = "accounts"
	Transactions Collection = "transactions"
	Goals        Collection = "goals"
)

// Config — время жизни записей по коллекциям. TTL транзакций короче:
// они меняются чаще счетов и целей.
type Config struct {
	AccountsTTL     time.Duration
	TransactionsTTL time.Duration
	GoalsTTL        time.Duration
}

func DefaultConfig() Config {
	return Config{
		AccountsTTL:     10 * time.Minute,
		TransactionsTTL: 2 * time.Minute,
		GoalsTTL:        10 * time.Minute,
	}
}

type key struct {
	userID     string
	collection Collection
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Service — внутрипроцессный кэш чтения перед хранилищем, ключ —
// (пользователь, коллекция). Кэш только совещательный: решения о записи
// по нему не принимаются, источником истины остается база.
type Service struct {
	mu      sync.Mutex
	entries map[key]entry
	cfg     Config
	now     func() time.Time
}

func New(cfg Config) *Service {
	return &Service{
		entries: make(map[key]entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *Service) ttl(c Collection) time.Duration {
	switch c {
	case Transactions:
		return s.cfg.TransactionsTTL
	case Goals:
		return s.cfg.GoalsTTL
	default:
		return s.cfg.AccountsTTL
	}
}

// Get возвращает живую запись кэша. Просроченные записи удаляются лениво.
func (s *Service) Get(userID string, c Collection) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID: userID, collection: c}
	e, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, k)
		return nil, false
	}
	return e.value, true
}

// Set кладет значение с TTL своей коллекции.
func (s *Service) Set(userID string, c Collection, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{userID: userID, collection: c}] = entry{
		value:     value,
		expiresAt: s.now().Add(s.ttl(c)),
	}
}

// Invalidate сбрасывает кэш коллекции пользователя. Вызывается синхронно
// из каждого пишущего пути до возврата успеха, чтобы следующее чтение
// гарантированно увидело свежие данные.
func (s *Service) Invalidate(userID string, c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key{userID: userID, collection: c})
}

// InvalidateUser сбрасывает все коллекции пользователя.
func (s *Service) InvalidateUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.userID == userID {
			delete(s.entries, k)
		}
	}
}

// Len возвращает число живых записей (для отладки и тестов).
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !s.now().After(e.expiresAt) {
			n++
		}
	}
	return n
}
