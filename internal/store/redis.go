package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dataPrefix    = "wb:data:"
	channelPrefix = "wb:evt:"
)

// Redis is a RemoteStore over a Redis instance. Every leaf of the tree is
// one Redis key holding its JSON value; fan-out rides Pub/Sub with one
// channel per path.
type Redis struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedis(rdb *redis.Client, log *zap.Logger) *Redis {
	return &Redis{rdb: rdb, log: log}
}

// writeIfAbsentScript sets all keys only when none of them exist yet. A
// key holding the JSON null counts as absent, matching ReadOnce. An empty
// ARGV entry marks a guard-only key that is checked but not set.
var writeIfAbsentScript = redis.NewScript(`
for i = 1, #KEYS do
	local v = redis.call('GET', KEYS[i])
	if v and v ~= 'null' then return 0 end
end
for i = 1, #KEYS do
	if ARGV[i] ~= '' then redis.call('SET', KEYS[i], ARGV[i]) end
end
return 1`)

func dataKey(path string) string    { return dataPrefix + path }
func channelKey(path string) string { return channelPrefix + path }

func (r *Redis) Write(ctx context.Context, path string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	leaves := make(map[string]any)
	flatten(path, v, leaves)

	oldKeys, err := r.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	if len(oldKeys) > 0 {
		pipe.Del(ctx, oldKeys...)
	}
	for lp, lv := range leaves {
		raw, err := json.Marshal(lv)
		if err != nil {
			return err
		}
		pipe.Set(ctx, dataKey(lp), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.publish(ctx, r.notifySet(path, leaves, oldKeys))
	return nil
}

func (r *Redis) Update(ctx context.Context, path string, fields map[string]any) error {
	leaves := make(map[string]any)
	var cleared []string
	for k, raw := range fields {
		v, err := normalize(raw)
		if err != nil {
			return err
		}
		// A nil field clears the key; see flatten.
		if v == nil {
			cleared = append(cleared, dataKey(path+"/"+k))
			continue
		}
		flatten(path+"/"+k, v, leaves)
	}

	pipe := r.rdb.TxPipeline()
	if len(cleared) > 0 {
		pipe.Del(ctx, cleared...)
	}
	for lp, lv := range leaves {
		raw, err := json.Marshal(lv)
		if err != nil {
			return err
		}
		pipe.Set(ctx, dataKey(lp), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.publish(ctx, r.notifySet(path, leaves, cleared))
	return nil
}

// WriteIfAbsent relies on all writers writing whole records: the guard
// checks the path key plus the exact leaf keys this value produces.
func (r *Redis) WriteIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	v, err := normalize(value)
	if err != nil {
		return false, err
	}
	leaves := make(map[string]any)
	flatten(path, v, leaves)

	keys := []string{dataKey(path)}
	argv := []any{""}
	for lp, lv := range leaves {
		if lp == path {
			continue
		}
		raw, err := json.Marshal(lv)
		if err != nil {
			return false, err
		}
		keys = append(keys, dataKey(lp))
		argv = append(argv, string(raw))
	}
	if lv, ok := leaves[path]; ok { // value itself is a leaf
		raw, err := json.Marshal(lv)
		if err != nil {
			return false, err
		}
		argv[0] = string(raw)
	}

	res, err := writeIfAbsentScript.Run(ctx, r.rdb, keys, argv...).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return false, nil
	}

	r.publish(ctx, r.notifySet(path, leaves, nil))
	return true, nil
}

func (r *Redis) ReadOnce(ctx context.Context, path string, dest any) (bool, error) {
	raw, err := r.assemble(ctx, path)
	if err != nil {
		return false, err
	}
	if string(raw) == "null" {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (r *Redis) Delete(ctx context.Context, path string) error {
	oldKeys, err := r.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}
	if len(oldKeys) > 0 {
		if err := r.rdb.Del(ctx, oldKeys...).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	r.publish(ctx, r.notifySet(path, nil, oldKeys))
	return nil
}

type redisSub struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
	})
	return err
}

func (r *Redis) Subscribe(ctx context.Context, path string, fn func(raw []byte)) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())
	ps := r.rdb.Subscribe(subCtx, channelKey(path))
	// Confirm the subscription is live before the initial snapshot so no
	// write can slip between the two.
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		ps.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	snapshot, err := r.assemble(ctx, path)
	if err != nil {
		cancel()
		ps.Close()
		return nil, err
	}
	fn(snapshot)

	go func() {
		for msg := range ps.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	return &redisSub{ps: ps, cancel: cancel}, nil
}

func (r *Redis) PushChildKey(path string) string {
	return pushChildKey(path)
}

// assemble materialises the JSON value at path: the leaf key itself, or
// the nested object built from every key under it, or "null".
func (r *Redis) assemble(ctx context.Context, path string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, dataKey(path)).Result()
	if err == nil {
		return []byte(val), nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var keys []string
	iter := r.rdb.Scan(ctx, 0, dataKey(path)+"/*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(keys) == 0 {
		return []byte("null"), nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tree := make(map[string]any)
	for i, key := range keys {
		s, ok := vals[i].(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		rel := strings.TrimPrefix(key, dataKey(path)+"/")
		graft(tree, strings.Split(rel, "/"), json.RawMessage(s))
	}
	return json.Marshal(tree)
}

func graft(node map[string]any, segs []string, val json.RawMessage) {
	if len(segs) == 1 {
		node[segs[0]] = val
		return
	}
	child, ok := node[segs[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		node[segs[0]] = child
	}
	graft(child, segs[1:], val)
}

// subtreeKeys lists the data keys at and under path.
func (r *Redis) subtreeKeys(ctx context.Context, path string) ([]string, error) {
	var keys []string
	n, err := r.rdb.Exists(ctx, dataKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n > 0 {
		keys = append(keys, dataKey(path))
	}
	iter := r.rdb.Scan(ctx, 0, dataKey(path)+"/*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return keys, nil
}

// notifySet computes every path whose subscribers can see a change rooted
// at base: base itself, its ancestors, and each touched path below base
// (from the new leaves and from any keys the change removed).
func (r *Redis) notifySet(base string, leaves map[string]any, oldKeys []string) []string {
	set := map[string]struct{}{base: {}}
	for _, a := range ancestors(base) {
		set[a] = struct{}{}
	}
	addBelow := func(p string) {
		if !strings.HasPrefix(p, base+"/") {
			return
		}
		rel := strings.TrimPrefix(p, base+"/")
		segs := strings.Split(rel, "/")
		cur := base
		for _, seg := range segs {
			cur = cur + "/" + seg
			set[cur] = struct{}{}
		}
	}
	for lp := range leaves {
		addBelow(lp)
	}
	for _, key := range oldKeys {
		addBelow(strings.TrimPrefix(key, dataPrefix))
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Redis) publish(ctx context.Context, paths []string) {
	for _, p := range paths {
		raw, err := r.assemble(ctx, p)
		if err != nil {
			r.log.Warn("assemble for publish failed", zap.String("path", p), zap.Error(err))
			continue
		}
		if err := r.rdb.Publish(ctx, channelKey(p), raw).Err(); err != nil {
			r.log.Warn("publish failed", zap.String("path", p), zap.Error(err))
		}
	}
}

// flatten decomposes v into leaf paths. Non-empty objects recurse; arrays
// and scalars are leaves. Nil values produce no leaf at all — absence is
// an unset key, never a stored "null", or conditional writes against the
// path would see it as occupied.
func flatten(path string, v any, out map[string]any) {
	if v == nil {
		return
	}
	if obj, ok := v.(map[string]any); ok && len(obj) > 0 {
		for k, child := range obj {
			flatten(path+"/"+k, child, out)
		}
		return
	}
	out[path] = v
}
