package adsb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleField can hold either a string or a number. A field that was absent or null
// holds nothing and reports itself as unknown.
type FlexibleField struct {
	value any
}

// UnmarshalJSON implements custom JSON unmarshaling for FlexibleField
func (f *FlexibleField) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.value = nil
		return nil
	}

	// Try to unmarshal as a number first
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.value = num
		return nil
	}

	// If that fails, try to unmarshal as a string
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		f.value = str
		return nil
	}

	// If both fail, try to unmarshal as a boolean
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.value = b
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleField", data)
}

// MarshalJSON writes the held value back out, or null when unknown
func (f FlexibleField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.value)
}

// Float64OK returns the value as a float64. ok is false when the value is absent or cannot
// be read as a number. The altitude marker "ground" reads as 0.
func (f *FlexibleField) Float64OK() (float64, bool) {
	switch v := f.value.(type) {
	case float64:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "ground") {
			return 0, true
		}
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float64Ptr returns the value as a pointer, nil when unknown
func (f *FlexibleField) Float64Ptr() *float64 {
	v, ok := f.Float64OK()
	if !ok {
		return nil
	}
	return &v
}

// String returns the value as a string
func (f *FlexibleField) String() string {
	switch v := f.value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// ExternalAPIResponse represents the raw JSON data from the external ADS-B API
type ExternalAPIResponse struct {
	Now      float64      `json:"now,omitempty"`
	Messages int          `json:"messages,omitempty"`
	AC       []ADSBTarget `json:"ac"`
}

// Normalize converts the external response to the standard format
func (e *ExternalAPIResponse) Normalize(now float64) *RawAircraftData {
	data := &RawAircraftData{
		Now:      e.Now,
		Messages: e.Messages,
		Aircraft: e.AC,
	}
	if data.Now == 0 {
		data.Now = now
	}
	if data.Aircraft == nil {
		data.Aircraft = []ADSBTarget{}
	}
	for i := range data.Aircraft {
		data.Aircraft[i].SourceType = SourceExternal
	}
	return data
}
