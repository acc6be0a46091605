package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// SelfTestResult reports each round-trip check performed by SelfTest.
type SelfTestResult struct {
	Basic  string   `json:"basic"`
	Number int      `json:"number"`
	Object string   `json:"object"`
	Set    []string `json:"set"`
}

// SelfTest writes, reads back and deletes a handful of test:* keys to prove
// the backend is reachable and behaves like the primitive expects.
func SelfTest(ctx context.Context, kv KV) (*SelfTestResult, error) {
	res := &SelfTestResult{}
	keys := []string{"test:connection", "test:number", "test:object", "test:set"}
	defer func() {
		for _, k := range keys {
			_ = kv.Del(ctx, k)
		}
	}()

	if err := kv.Set(ctx, "test:connection", "ok"); err != nil {
		return nil, err
	}
	v, ok, err := kv.Get(ctx, "test:connection")
	if err != nil {
		return nil, err
	}
	if !ok || v != "ok" {
		return nil, fmt.Errorf("basic round-trip: got %q (found=%t)", v, ok)
	}
	res.Basic = v

	if err := kv.Set(ctx, "test:number", strconv.Itoa(42)); err != nil {
		return nil, err
	}
	v, _, err = kv.Get(ctx, "test:number")
	if err != nil {
		return nil, err
	}
	if res.Number, err = strconv.Atoi(v); err != nil || res.Number != 42 {
		return nil, fmt.Errorf("number round-trip: got %q", v)
	}

	obj, err := json.Marshal(map[string]any{"name": "test", "date": time.Now().UnixMilli()})
	if err != nil {
		return nil, err
	}
	if err := kv.Set(ctx, "test:object", string(obj)); err != nil {
		return nil, err
	}
	v, _, err = kv.Get(ctx, "test:object")
	if err != nil {
		return nil, err
	}
	if v != string(obj) {
		return nil, fmt.Errorf("object round-trip: got %q", v)
	}
	res.Object = v

	if err := kv.SAdd(ctx, "test:set", "a", "b", "c"); err != nil {
		return nil, err
	}
	members, err := kv.SMembers(ctx, "test:set")
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	if len(members) != 3 || members[0] != "a" || members[2] != "c" {
		return nil, fmt.Errorf("set round-trip: got %v", members)
	}
	res.Set = members

	return res, nil
}
