package core

import (
	"slices"
	"sync"

	"motionstation/protocol"
)

// Dictionary is the JSON data dictionary the host retrieves with identify:
// version strings, constants, enumerations and every command and response
// keyed by signature.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]string
	enumerations  map[string][]string
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a new dictionary over cmdReg
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]string),
		enumerations:  make(map[string][]string),
		commandReg:    cmdReg,
		version:       "motionstation-" + protocol.Version,
		buildVersions: "go-tinygo",
	}
}

// GetGlobalDictionary returns the dictionary of the global registry
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}

// RegisterConstant registers a constant in the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration registers an enumeration in the global dictionary
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

// AddConstant adds a constant; values are sent as strings.
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = valueToString(value)
	d.cachedDict = nil
}

// AddEnumeration adds an enumeration. Empty names keep their index unused.
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumerations[name] = slices.Clone(values)
	d.cachedDict = nil
}

func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary caches the dictionary; call once every command is
// registered.
func (d *Dictionary) BuildDictionary() {
	// registry lock first, never while holding ours
	entries := d.commandReg.Entries()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedDict = d.buildJSONLocked(entries)
	DebugPrintln("[DICT] " + itoa(len(entries)) + " entries, " + itoa(len(d.cachedDict)) + " bytes")
}

// Generate returns the dictionary, building it when not cached.
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}
	d.BuildDictionary()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cachedDict
}

func (d *Dictionary) buildJSONLocked(entries []*Command) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":`...)
	result = appendJSONString(result, d.version)
	result = append(result, `,"build_versions":`...)
	result = appendJSONString(result, d.buildVersions)

	result = append(result, `,"config":{`...)
	for i, name := range sortedKeys(d.constants) {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSONString(result, name)
		result = append(result, ':')
		result = appendJSONString(result, d.constants[name])
	}

	result = append(result, `},"commands":{`...)
	result = appendEntries(result, entries, true)
	result = append(result, `},"responses":{`...)
	result = appendEntries(result, entries, false)
	result = append(result, '}')

	if len(d.enumerations) > 0 {
		result = append(result, `,"enumerations":{`...)
		for i, name := range sortedKeys(d.enumerations) {
			if i > 0 {
				result = append(result, ',')
			}
			result = appendJSONString(result, name)
			result = append(result, ":{"...)
			first := true
			for idx, value := range d.enumerations[name] {
				if value == "" {
					continue
				}
				if !first {
					result = append(result, ',')
				}
				result = appendJSONString(result, value)
				result = append(result, ':')
				result = append(result, itoa(idx)...)
				first = false
			}
			result = append(result, '}')
		}
		result = append(result, '}')
	}

	return append(result, '}')
}

// appendEntries writes "signature":id pairs of the commands (handler set)
// or the responses, in ID order.
func appendEntries(result []byte, entries []*Command, commands bool) []byte {
	first := true
	for _, cmd := range entries {
		if (cmd.Handler != nil) != commands {
			continue
		}
		if !first {
			result = append(result, ',')
		}
		result = appendJSONString(result, cmd.Signature())
		result = append(result, ':')
		result = append(result, itoa(int(cmd.ID))...)
		first = false
	}
	return result
}

func appendJSONString(result []byte, s string) []byte {
	result = append(result, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			result = append(result, '\\', c)
		case '\n':
			result = append(result, '\\', 'n')
		default:
			result = append(result, c)
		}
	}
	return append(result, '"')
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetChunk returns a copy of count bytes of the dictionary at offset,
// empty past the end.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := min(offset+uint32(count), uint32(len(data)))
	return slices.Clone(data[offset:end])
}
