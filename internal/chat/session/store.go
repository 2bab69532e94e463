// Package session guarda as sessões do chat em memória.
//
// Cada sessão tem seu próprio mutex: mensagens da mesma sessão são
// serializadas, sessões diferentes rodam em paralelo. Sessões sem atividade
// por mais que o TTL são removidas por uma goroutine de limpeza.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
)

type entry struct {
	mu      sync.Mutex
	sess    *domain.Session
	evicted bool
}

// InMemoryStore implementa port.SessionStore sobre um map protegido.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	onSize  func(int)
}

// Option configura o InMemoryStore.
type Option func(*InMemoryStore)

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) { s.now = now }
}

// WithSizeObserver recebe o número de sessões a cada inserção ou limpeza.
func WithSizeObserver(fn func(int)) Option {
	return func(s *InMemoryStore) { s.onSize = fn }
}

// NewInMemoryStore cria o store. Com ttl > 0, a limpeza roda até ctx ser cancelado.
func NewInMemoryStore(ctx context.Context, ttl time.Duration, logger *zap.Logger, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		onSize:  func(int) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	if ttl > 0 {
		go s.cleanupLoop(ctx)
	}
	return s
}

// Create abre uma sessão nova com id aleatório.
func (s *InMemoryStore) Create(_ context.Context) (*domain.Session, error) {
	sess := domain.NewSession(uuid.NewString(), s.now())

	s.mu.Lock()
	s.entries[sess.ID] = &entry{sess: sess}
	n := len(s.entries)
	s.mu.Unlock()
	s.onSize(n)

	return sess.Clone(), nil
}

// Get devolve uma cópia da sessão.
func (s *InMemoryStore) Get(_ context.Context, id string) (*domain.Session, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, false
	}
	return e.sess.Clone(), true
}

// Update aplica fn na sessão com acesso exclusivo. Ids desconhecidos
// criam uma sessão nova com esse id.
func (s *InMemoryStore) Update(_ context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	for {
		e := s.getOrCreate(id)

		e.mu.Lock()
		if e.evicted {
			// Removida entre o lookup e o lock: tenta de novo.
			e.mu.Unlock()
			continue
		}

		err := fn(e.sess)
		e.sess.UpdatedAt = s.now()
		out := e.sess.Clone()
		e.mu.Unlock()

		return out, err
	}
}

// Len devolve o número de sessões vivas.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryStore) getOrCreate(id string) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	e = &entry{sess: domain.NewSession(id, s.now())}
	s.entries[id] = e
	s.onSize(len(s.entries))
	return e
}

func (s *InMemoryStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.evictExpired(); n > 0 {
				s.logger.Debug("sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// evictExpired remove sessões paradas há mais que o TTL. Sessões em uso
// (mutex ocupado) ficam para a próxima rodada.
func (s *InMemoryStore) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(-s.ttl)
	evicted := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.UpdatedAt.Before(deadline) {
			e.evicted = true
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	s.onSize(len(s.entries))
	return evicted
}
