// Package setting stores run time settings that can change without a restart.
//
// Settings are addressed by a Key and hold a Value. Consumers register
// callbacks with OnSettingChange, to react on updates made through the same Settings.
package setting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("invalid key")
)

type Settings interface {
	Save(ctx context.Context, key Key, value Value) error

	Setting(ctx context.Context, key Key) (Value, error)
	Settings(ctx context.Context, keys []Key) (map[Key]Value, error)

	Delete(ctx context.Context, key Key) error

	// OnSettingChange registers a callback, called after a Save changed the value of key.
	OnSettingChange(key Key, callback func(setting Value))
}

func NewKey(context string, group string, name string) Key {
	return Key{context: context, group: group, setting: name}
}

// ParseKey is the inverse of Key.Key.
func ParseKey(key string) (Key, error) {
	parts := strings.Split(key, ".")

	const numParts = 3
	if len(parts) != numParts {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	return NewKey(parts[0], parts[1], parts[2]), nil
}

type Key struct {
	context string
	group   string
	setting string
}

func (k Key) Key() string {
	parts := []string{"MISSING", "MISSING", "MISSING"}

	if k.context != "" {
		parts[0] = k.context
	}

	if k.group != "" {
		parts[1] = k.group
	}

	if k.setting != "" {
		parts[2] = k.setting
	}

	return strings.Join(parts, ".")
}

// NewValue returns a valid Value for val.
func NewValue(val any) Value { //nolint:cyclop
	if val == nil {
		return Value{v: ""}
	}

	switch v := val.(type) {
	case string:
		return Value{v: v}
	case fmt.Stringer:
		if t, ok := val.(time.Time); ok {
			return Value{v: t.Format(time.RFC3339Nano)}
		}

		if d, ok := val.(time.Duration); ok {
			return Value{v: d.String()}
		}
	}

	r := reflect.ValueOf(val)

	switch r.Kind() { //nolint:exhaustive
	case reflect.String:
		return Value{v: r.String()}
	case reflect.Bool:
		return Value{v: strconv.FormatBool(r.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{v: strconv.FormatInt(r.Int(), base)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{v: strconv.FormatUint(r.Uint(), base)}
	case reflect.Float32, reflect.Float64:
		return Value{v: strconv.FormatFloat(r.Float(), 'g', -1, 64)}
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(val)
		if err != nil {
			return Value{v: ""}
		}

		return Value{v: string(b)}
	default:
		return Value{v: ""}
	}
}

// base is the base used to format and parse int values from and to strings.
const base = 10

// Value is the raw value of a setting.
// It is stored as a string and converted on access.
type Value struct {
	v string
}

func (v Value) String() string {
	return v.v
}

func (v Value) MustString() string {
	return v.v
}

func (v Value) Bool() (bool, error) {
	if v.v == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(v.v)
	if err != nil {
		return false, fmt.Errorf("%w", err)
	}

	return b, nil
}

func (v Value) MustBool() bool {
	b, err := v.Bool()
	if err != nil {
		panic(err)
	}

	return b
}

func (v Value) Int() (int, error) {
	i, err := strconv.Atoi(v.v)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}

	return i, nil
}

func (v Value) MustInt() int {
	i, err := v.Int()
	if err != nil {
		panic(err)
	}

	return i
}

func (v Value) Duration() (time.Duration, error) {
	d, err := time.ParseDuration(v.v)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}

	return d, nil
}

func (v Value) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v.v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w", err)
	}

	return t, nil
}

// Unmarshal decodes a Value created from a map, slice or struct into o.
func (v Value) Unmarshal(o any) error {
	if s, ok := o.(*string); ok {
		*s = v.v

		return nil
	}

	if err := json.Unmarshal([]byte(v.v), o); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (v Value) MustUnmarshal(o any) {
	if err := v.Unmarshal(o); err != nil {
		panic(err)
	}
}

// notifier keeps the callbacks registered via OnSettingChange.
// It is shared by all Settings implementations.
type notifier struct {
	mu       sync.Mutex
	onChange map[Key][]func(Value)
}

func newNotifier() *notifier {
	return &notifier{
		mu:       sync.Mutex{},
		onChange: make(map[Key][]func(Value)),
	}
}

func (n *notifier) OnSettingChange(key Key, callback func(setting Value)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.onChange[key] = append(n.onChange[key], callback)
}

func (n *notifier) notify(key Key, value Value) {
	n.mu.Lock()
	callbacks := make([]func(Value), len(n.onChange[key]))
	copy(callbacks, n.onChange[key])
	n.mu.Unlock()

	for _, c := range callbacks {
		c(value)
	}
}
