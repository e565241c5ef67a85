package settings

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrUnknownSetting is returned when a setting is addressed by a name that is not known.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidValue is returned when a value cannot be converted to the type of a setting.
	ErrInvalidValue = errors.New("invalid setting value")
)

// Key addresses one field of [Settings] and constrains its values to type T.
type Key[T comparable] struct {
	name  string
	ref   func(*Settings) *T
	valid func(T) bool
}

// Well-known setting keys.
var (
	KeyCompactView = Key[bool]{
		name: "compactView",
		ref:  func(s *Settings) *bool { return &s.CompactView },
	}
	KeyChartType = Key[ChartType]{
		name:  "chartType",
		ref:   func(s *Settings) *ChartType { return &s.ChartType },
		valid: ChartType.IsValid,
	}
	KeyDefaultTimeRange = Key[TimeRange]{
		name:  "defaultTimeRange",
		ref:   func(s *Settings) *TimeRange { return &s.DefaultTimeRange },
		valid: TimeRange.IsValid,
	}
	KeyEmailAlerts = Key[bool]{
		name: "emailAlerts",
		ref:  func(s *Settings) *bool { return &s.EmailAlerts },
	}
	KeyInsightNotifications = Key[bool]{
		name: "insightNotifications",
		ref:  func(s *Settings) *bool { return &s.InsightNotifications },
	}
	KeyShareUsageAnalytics = Key[bool]{
		name: "shareUsageAnalytics",
		ref:  func(s *Settings) *bool { return &s.ShareUsageAnalytics },
	}
	KeySaveQueryHistory = Key[bool]{
		name: "saveQueryHistory",
		ref:  func(s *Settings) *bool { return &s.SaveQueryHistory },
	}
)

// field is the type-erased view of a [Key], used when values come from an untyped source.
type field interface {
	Name() string
	apply(s *Settings, raw any) error
}

var fields = []field{
	KeyCompactView,
	KeyChartType,
	KeyDefaultTimeRange,
	KeyEmailAlerts,
	KeyInsightNotifications,
	KeyShareUsageAnalytics,
	KeySaveQueryHistory,
}

// Name returns the wire name of the setting.
func (k Key[T]) Name() string {
	return k.name
}

// Get reads the value of this key from s.
func (k Key[T]) Get(s Settings) T {
	return *k.ref(&s)
}

// Validate reports an error if v is not an acceptable value for this key.
func (k Key[T]) Validate(v T) error {
	if k.valid != nil && !k.valid(v) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, k.name, v)
	}

	return nil
}

func (k Key[T]) apply(s *Settings, raw any) error {
	var v T
	if err := mapstructure.WeakDecode(raw, &v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, k.name, err)
	}

	if err := k.Validate(v); err != nil {
		return err
	}

	*k.ref(s) = v

	return nil
}

// Names returns the wire names of all settings, in declaration order.
func Names() []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name())
	}

	return names
}

func lookup(name string) (field, bool) {
	for _, f := range fields {
		if f.Name() == name {
			return f, true
		}
	}

	return nil, false
}

// FromMap merges a loosely typed map, as served by the remote store, into base.
//
// Booleans may be native or strings such as "true" and "false". Missing, blank or unparsable
// values leave the base value untouched; the conversion errors are returned for reporting.
// Unknown keys are dropped.
func FromMap(raw map[string]any, base Settings) (Settings, []error) {
	out := base
	var errs []error

	for _, f := range fields {
		v, ok := raw[f.Name()]
		if !ok || isBlank(v) {
			continue
		}

		if err := f.apply(&out, v); err != nil {
			errs = append(errs, err)
		}
	}

	return out, errs
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	default:
		return false
	}
}
