package session

// EvictExpired expõe a limpeza para os testes.
func (s *InMemoryStore) EvictExpired() int { return s.evictExpired() }
