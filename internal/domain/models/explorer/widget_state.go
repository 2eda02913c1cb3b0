package explorer

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// UnlimitedSlots is the RemainingSlots value meaning the picker has no cardinality limit.
const UnlimitedSlots = -1

// Query parameter names of a serialized widget state.
const (
	ParamOpenerID       = "opener_id"
	ParamAllowedType    = "allowed_type"
	ParamSelectedType   = "selected_type"
	ParamRemainingSlots = "remaining_slots"
	ParamHash           = "hash"
	// ParamContextPrefix prefixes every opener context key
	ParamContextPrefix = "ctx."
)

// WidgetState is the validated, tamper-checked parameter bag describing one
// embedded picker instance. It is immutable once decoded.
type WidgetState struct {
	OpenerID       string            `json:"opener_id"`
	AllowedTypes   []string          `json:"allowed_types"`
	SelectedType   string            `json:"selected_type"`
	RemainingSlots int               `json:"remaining_slots"`
	OpenerContext  map[string]string `json:"opener_context,omitempty"`
	Hash           string            `json:"hash"`
}

// Unlimited reports whether the picker accepts any number of selections.
func (w *WidgetState) Unlimited() bool {
	return w.RemainingSlots == UnlimitedSlots
}

// Filter returns the bundle filter implied by the selected type.
func (w *WidgetState) Filter() FilterSpec {
	return NewFilterSpec(w.SelectedType)
}

// AllowedFilter returns the bundle filter covering every allowed type.
func (w *WidgetState) AllowedFilter() FilterSpec {
	return NewFilterSpec(w.AllowedTypes...)
}

// UnsignedValues serializes every field except the hash.
// Allowed types are trimmed, de-duplicated and sorted.
func (w *WidgetState) UnsignedValues() url.Values {
	v := url.Values{}
	v.Set(ParamOpenerID, w.OpenerID)
	for _, t := range CanonicalTypes(w.AllowedTypes) {
		v.Add(ParamAllowedType, t)
	}
	v.Set(ParamSelectedType, w.SelectedType)
	v.Set(ParamRemainingSlots, strconv.Itoa(w.RemainingSlots))
	for k, val := range w.OpenerContext {
		v.Set(ParamContextPrefix+k, val)
	}
	return v
}

// Values serializes the state as request parameters, hash included.
func (w *WidgetState) Values() url.Values {
	v := w.UnsignedValues()
	v.Set(ParamHash, w.Hash)
	return v
}

// CanonicalTypes trims, de-duplicates and sorts type tags, dropping empty ones.
func CanonicalTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
