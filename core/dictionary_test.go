package core

import (
	"encoding/json"
	"strings"
	"testing"
)

type parsedDictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations"`
}

func TestDictionary(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)

	dict.AddConstant("STEPS_PER_REV", uint16(200))
	dict.AddConstant("MCU", "stm32f401")
	dict.AddConstant("NEGATIVE", int64(-5))
	dict.AddEnumeration("direction", []string{"ccw", "cw"})
	dict.AddEnumeration("sparse", []string{"", "one"})

	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })
	reg.Register("log", "msg=%*s", nil)

	var got parsedDictionary
	if err := json.Unmarshal(dict.Generate(), &got); err != nil {
		t.Fatalf("Dictionary is not valid JSON: %v\n%s", err, dict.Generate())
	}

	if !strings.HasPrefix(got.Version, "motionstation-") {
		t.Errorf("Expected motionstation version, got %q", got.Version)
	}
	if got.Config["STEPS_PER_REV"] != "200" || got.Config["MCU"] != "stm32f401" || got.Config["NEGATIVE"] != "-5" {
		t.Errorf("Unexpected constants %v", got.Config)
	}
	if got.Commands["identify offset=%u count=%c"] != 1 || len(got.Commands) != 1 {
		t.Errorf("Unexpected commands %v", got.Commands)
	}
	if got.Responses["identify_response offset=%u data=%*s"] != 0 || got.Responses["log msg=%*s"] != 2 {
		t.Errorf("Unexpected responses %v", got.Responses)
	}
	if got.Enumerations["direction"]["cw"] != 1 {
		t.Errorf("Unexpected enumerations %v", got.Enumerations)
	}
	if _, ok := got.Enumerations["sparse"][""]; ok || got.Enumerations["sparse"]["one"] != 1 {
		t.Errorf("Expected empty names skipped, got %v", got.Enumerations["sparse"])
	}
}

func TestDictionaryChunks(t *testing.T) {
	reg := NewCommandRegistry()
	dict := NewDictionary(reg)
	dict.AddConstant("TEST", uint32(123))
	reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })
	dict.BuildDictionary()

	full := dict.Generate()
	var joined []byte
	for offset := uint32(0); ; {
		chunk := dict.GetChunk(offset, 40)
		if len(chunk) == 0 {
			break
		}
		joined = append(joined, chunk...)
		offset += uint32(len(chunk))
	}
	if string(joined) != string(full) {
		t.Errorf("Expected chunks to rebuild the dictionary")
	}

	if c := dict.GetChunk(uint32(len(full)), 40); len(c) != 0 {
		t.Errorf("Expected empty chunk at the end, got %d bytes", len(c))
	}
	if c := dict.GetChunk(uint32(len(full))-3, 40); len(c) != 3 {
		t.Errorf("Expected 3-byte tail chunk, got %d bytes", len(c))
	}

	// chunks are copies
	c := dict.GetChunk(0, 4)
	c[0] = 'X'
	if dict.Generate()[0] != '{' {
		t.Error("Expected chunk to be a copy")
	}
}

func TestDictionaryEscapes(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("QUOTE", `a"b\c`)

	var got parsedDictionary
	if err := json.Unmarshal(dict.Generate(), &got); err != nil {
		t.Fatalf("Dictionary is not valid JSON: %v", err)
	}
	if got.Config["QUOTE"] != `a"b\c` {
		t.Errorf("Expected escaped constant round trip, got %q", got.Config["QUOTE"])
	}
}

func TestItoa(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-42, "-42"},
		{1234567890, "1234567890"},
	}
	for _, tt := range tests {
		if got := itoa(tt.n); got != tt.want {
			t.Errorf("itoa(%d): expected %q, got %q", tt.n, tt.want, got)
		}
	}
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("Expected 4294967295, got %q", got)
	}
}
