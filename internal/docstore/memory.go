package docstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/netplay-club/internal/metrics"
)

type memEntry struct {
	value   []byte
	version uint64
}

type memSub struct {
	prefix   string
	onChange func(Change)
}

// Memory is an in-process Store. Transactions are optimistic: the mutation
// runs without the lock held and the result commits only if the document
// version is unchanged, so concurrent callers observe real conflicts.
type Memory struct {
	mu          sync.RWMutex
	docs        map[string]memEntry
	collections map[string]map[string][]byte
	subs        map[int]memSub
	nextSub     int
	maxRetries  int
	metrics     *metrics.Metrics
}

// Option configures a backend.
type Option func(*options)

type options struct {
	maxRetries int
	metrics    *metrics.Metrics
}

func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		docs:        make(map[string]memEntry),
		collections: make(map[string]map[string][]byte),
		subs:        make(map[int]memSub),
		maxRetries:  o.maxRetries,
		metrics:     o.metrics,
	}
}

const memoryBackend = "memory"

func (m *Memory) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e.value), nil
}

func (m *Memory) Transact(ctx context.Context, key string, mutate MutateFunc) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.mu.RLock()
		cur, exists := m.docs[key]
		m.mu.RUnlock()

		var in []byte
		if exists {
			in = clone(cur.value)
		}
		next, err := mutate(in)
		if errors.Is(err, ErrUnchanged) {
			m.metrics.StoreTx(memoryBackend, metrics.OutcomeUnchanged)
			return in, nil
		}
		if err != nil {
			m.metrics.StoreTx(memoryBackend, metrics.OutcomeAborted)
			return nil, err
		}

		m.mu.Lock()
		now, nowExists := m.docs[key]
		if nowExists != exists || now.version != cur.version {
			m.mu.Unlock()
			m.metrics.StoreTx(memoryBackend, metrics.OutcomeConflict)
			continue
		}
		change := Change{Key: key}
		if next == nil {
			delete(m.docs, key)
			change.Deleted = true
		} else {
			m.docs[key] = memEntry{value: clone(next), version: cur.version + 1}
			change.Value = clone(next)
		}
		subs := m.matchingSubs(key)
		m.mu.Unlock()

		m.metrics.StoreTx(memoryBackend, metrics.OutcomeCommitted)
		notify(subs, change)
		return next, nil
	}
	m.metrics.StoreTx(memoryBackend, metrics.OutcomeExhausted)
	return nil, ErrConflict
}

func (m *Memory) Replace(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	cur := m.docs[key]
	m.docs[key] = memEntry{value: clone(value), version: cur.version + 1}
	subs := m.matchingSubs(key)
	m.mu.Unlock()
	notify(subs, Change{Key: key, Value: clone(value)})
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	_, ok := m.docs[key]
	delete(m.docs, key)
	subs := m.matchingSubs(key)
	m.mu.Unlock()
	if ok {
		notify(subs, Change{Key: key, Deleted: true})
	}
	return nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Subscribe(ctx context.Context, prefix string, onChange func(Change)) (func(), error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = memSub{prefix: prefix, onChange: onChange}
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

func (m *Memory) Append(ctx context.Context, collection string, value []byte) (string, error) {
	if err := ValidateKey(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string][]byte)
		m.collections[collection] = col
	}
	col[id.String()] = clone(value)
	return id.String(), nil
}

func (m *Memory) Query(ctx context.Context, collection string, match func([]byte) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.collections[collection]))
	for id, v := range m.collections[collection] {
		if match != nil && !match(v) {
			continue
		}
		out = append(out, Record{ID: id, Value: clone(v)})
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) DeleteRecord(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col := m.collections[collection]
	if _, ok := col[id]; !ok {
		return ErrNotFound
	}
	delete(col, id)
	return nil
}

// matchingSubs must be called with m.mu held.
func (m *Memory) matchingSubs(key string) []func(Change) {
	var out []func(Change)
	for _, s := range m.subs {
		if strings.HasPrefix(key, s.prefix) {
			out = append(out, s.onChange)
		}
	}
	return out
}

func notify(subs []func(Change), c Change) {
	for _, fn := range subs {
		fn(c)
	}
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
