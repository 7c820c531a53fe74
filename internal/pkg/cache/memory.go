package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = sem expiração
}

// MemoryClient é uma implementação em memória de Client, usada em testes e em
// desenvolvimento sem Redis. O erro injetado com SetFailure é devolvido por todas as
// operações, o que permite exercitar os caminhos fail-open de forma determinística.
type MemoryClient struct {
	mu      sync.Mutex
	data    map[string]memoryEntry
	now     func() time.Time
	failure error
	calls   map[string]int
}

// NewMemoryClient cria um MemoryClient vazio usando o relógio do sistema.
func NewMemoryClient() *MemoryClient {
	return NewMemoryClientWithClock(time.Now)
}

// NewMemoryClientWithClock permite controlar o tempo (expiração) nos testes.
func NewMemoryClientWithClock(now func() time.Time) *MemoryClient {
	return &MemoryClient{
		data:  make(map[string]memoryEntry),
		now:   now,
		calls: make(map[string]int),
	}
}

// SetFailure faz todas as operações seguintes falharem com err (nil restaura).
func (m *MemoryClient) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Calls devolve quantas vezes a operação foi chamada (inclusive as que falharam).
func (m *MemoryClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TTL devolve o tempo restante de uma chave; ok=false se não existe ou não expira.
func (m *MemoryClient) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, exists := m.lookup(key)
	if !exists || e.expiresAt.IsZero() {
		return 0, false
	}
	return e.expiresAt.Sub(m.now()), true
}

// Len devolve o número de chaves vivas.
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.data {
		if _, ok := m.lookup(k); ok {
			n++
		}
	}
	return n
}

// begin registra a chamada e devolve o erro injetado, se houver. Deve ser chamado com mu travado.
func (m *MemoryClient) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.failure
}

// lookup devolve a entrada se existir e não estiver expirada; expiradas são removidas.
func (m *MemoryClient) lookup(key string) (memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "get"); err != nil {
		return "", err
	}
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "set"); err != nil {
		return err
	}
	e := memoryEntry{value: stringify(value)}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.data[key] = e
	return nil
}

func (m *MemoryClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "del"); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

// Incr segue a semântica do INCR: chave ausente vale 0 e o TTL existente é preservado.
func (m *MemoryClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "incr"); err != nil {
		return 0, err
	}
	e, _ := m.lookup(key)
	var n int64
	if e.value != "" {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value is not an integer or out of range")
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.data[key] = e
	return n, nil
}

func (m *MemoryClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "expire"); err != nil {
		return err
	}
	e, ok := m.lookup(key)
	if !ok {
		return nil
	}
	e.expiresAt = m.now().Add(ttl)
	m.data[key] = e
	return nil
}

func (m *MemoryClient) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, "scan_delete"); err != nil {
		return 0, err
	}
	var deleted int64
	for k := range m.data {
		if _, alive := m.lookup(k); !alive {
			continue
		}
		if globMatch(pattern, k) {
			delete(m.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin(ctx, "ping")
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// globMatch implementa o subconjunto de glob aceito pelo MATCH do Redis:
// '*', '?', classes '[...]' (com '^' e intervalos) e escape com '\'.
func globMatch(pattern, s string) bool {
	p := []rune(pattern)
	str := []rune(s)
	return matchRunes(p, str)
}

func matchRunes(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 1 && p[1] == '*' {
				p = p[1:]
			}
			if len(p) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchRunes(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			end, ok := matchClass(p, s[0])
			if end < 0 || !ok {
				return false
			}
			p, s = p[end+1:], s[1:]
		case '\\':
			if len(p) > 1 {
				p = p[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || p[0] != s[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// matchClass avalia a classe que começa em p[0]=='[' contra c. Devolve o índice do ']'
// final (-1 se a classe não fecha) e se c pertence à classe.
func matchClass(p []rune, c rune) (int, bool) {
	i := 1
	negate := false
	if i < len(p) && p[i] == '^' {
		negate = true
		i++
	}
	matched := false
	for ; i < len(p) && p[i] != ']'; i++ {
		switch {
		case p[i] == '\\' && i+1 < len(p):
			i++
			if p[i] == c {
				matched = true
			}
		case i+2 < len(p) && p[i+1] == '-' && p[i+2] != ']':
			lo, hi := p[i], p[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 2
		default:
			if p[i] == c {
				matched = true
			}
		}
	}
	if i >= len(p) {
		return -1, false
	}
	return i, matched != negate
}
