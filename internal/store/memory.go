package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Memory is an in-process RemoteStore. It backs the test suites and
// single-node deployments where Redis is not configured.
type Memory struct {
	mu     sync.Mutex
	root   map[string]any
	subs   map[int]*memorySub
	nextID int
}

func NewMemory() *Memory {
	return &Memory{
		root: make(map[string]any),
		subs: make(map[int]*memorySub),
	}
}

type memorySub struct {
	id   int
	path string
	fn   func([]byte)
	s    *Memory
	once sync.Once
}

func (m *memorySub) Close() error {
	m.once.Do(func() {
		m.s.mu.Lock()
		delete(m.s.subs, m.id)
		m.s.mu.Unlock()
	})
	return nil
}

type notification struct {
	id      int
	fn      func([]byte)
	payload []byte
}

func (m *Memory) Write(ctx context.Context, path string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.setAt(path, v)
	pending := m.collect(path)
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	node, ok := m.valueAt(path).(map[string]any)
	if !ok {
		node = make(map[string]any)
		m.setAt(path, node)
	}
	for k, raw := range fields {
		v, err := normalize(raw)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		if v == nil {
			delete(node, k)
			continue
		}
		node[k] = v
	}
	pending := m.collect(path)
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *Memory) WriteIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	v, err := normalize(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	if m.valueAt(path) != nil {
		m.mu.Unlock()
		return false, nil
	}
	m.setAt(path, v)
	pending := m.collect(path)
	m.mu.Unlock()
	fire(pending)
	return true, nil
}

func (m *Memory) ReadOnce(ctx context.Context, path string, dest any) (bool, error) {
	m.mu.Lock()
	v := m.valueAt(path)
	if v == nil {
		m.mu.Unlock()
		return false, nil
	}
	raw, err := json.Marshal(v)
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	m.deleteAt(path)
	pending := m.collect(path)
	m.mu.Unlock()
	fire(pending)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, path string, fn func(raw []byte)) (Subscription, error) {
	m.mu.Lock()
	m.nextID++
	sub := &memorySub{id: m.nextID, path: path, fn: fn, s: m}
	m.subs[sub.id] = sub
	payload := marshalOrNull(m.valueAt(path))
	m.mu.Unlock()

	// Initial snapshot, like a realtime database value listener.
	fn(payload)
	return sub, nil
}

func (m *Memory) PushChildKey(path string) string {
	return pushChildKey(path)
}

// collect gathers the callbacks affected by a change at target, with the
// payloads they should see. Callers invoke them after releasing the lock
// so a callback may use the store again.
func (m *Memory) collect(target string) []notification {
	var out []notification
	for _, sub := range m.subs {
		if covers(sub.path, target) {
			out = append(out, notification{
				id:      sub.id,
				fn:      sub.fn,
				payload: marshalOrNull(m.valueAt(sub.path)),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func fire(pending []notification) {
	for _, n := range pending {
		n.fn(n.payload)
	}
}

func (m *Memory) valueAt(path string) any {
	var node any = m.root
	for _, seg := range splitPath(path) {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[seg]
	}
	return node
}

func (m *Memory) setAt(path string, value any) {
	segs := splitPath(path)
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

func (m *Memory) deleteAt(path string) {
	segs := splitPath(path)
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, segs[len(segs)-1])
}

// normalize round-trips value through JSON so the tree only ever holds
// map[string]any, []any and scalars.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalOrNull(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return raw
}
