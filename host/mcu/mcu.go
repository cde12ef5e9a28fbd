package mcu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"motionstation/host/serial"
	"motionstation/protocol"
)

// Identify runs before the dictionary is known, so its IDs are fixed.
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
)

// ErrNotConnected is returned by calls made before Connect or after Close.
var ErrNotConnected = errors.New("not connected to MCU")

// MCU represents a connection to a motion station
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	// Serial port
	port io.ReadWriteCloser

	// Dictionary data
	dictionary     *Dictionary
	dictionaryData []byte
	commands       map[string]uint16
	responses      map[string]uint16

	// log responses are printed as they arrive
	logID  atomic.Int32
	logger *log.Logger

	// Timeout waits for a specific response
	Timeout time.Duration

	// Connection state
	connected bool
}

// Dictionary represents the parsed MCU dictionary
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	m := &MCU{
		logger:  log.New(io.Discard, "", 0),
		Timeout: time.Second,
	}
	m.logID.Store(-1)
	return m
}

// SetLogger routes the MCU's log responses to l.
func (m *MCU) SetLogger(l *log.Logger) {
	m.logger = l
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach runs the link over an already open port.
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetResponseHandler(m.handleResponse)
	m.connected = true
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.transport.Close()
}

// RetrieveDictionary retrieves the complete dictionary from the MCU
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	const maxIterations = 1000 // Safety limit

	for i := 0; ; i++ {
		if i == maxIterations {
			return fmt.Errorf("dictionary exceeds %d chunks", maxIterations)
		}
		chunk, err := m.sendIdentify(offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		// a short chunk is the last one
		if len(chunk) < identifyChunk {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()
	if err := m.parseDictionary(); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	return nil
}

// sendIdentify sends an identify command and waits for response
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify command: %w", err)
	}

	payload, err := m.waitFor(identifyResponseID)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return data, nil
}

// parseDictionary parses the dictionary JSON and indexes it by name
func (m *MCU) parseDictionary() error {
	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	m.dictionary = dict
	m.commands = indexByName(dict.Commands)
	m.responses = indexByName(dict.Responses)
	if id, ok := m.responses["log"]; ok {
		m.logID.Store(int32(id))
	}
	return nil
}

// indexByName keys signatures like "rotate steps=%hu ..." by their name.
func indexByName(sigs map[string]int) map[string]uint16 {
	out := make(map[string]uint16, len(sigs))
	for sig, id := range sigs {
		name, _, _ := strings.Cut(sig, " ")
		out[name] = uint16(id)
	}
	return out
}

// handleResponse runs on the reader goroutine for every response.
func (m *MCU) handleResponse(cmdID uint16, data *[]byte) error {
	if int32(cmdID) != m.logID.Load() {
		return nil
	}
	msg, err := protocol.DecodeVLQString(data)
	if err != nil {
		return err
	}
	m.logger.Print(msg)
	return nil
}

// waitFor returns the arguments of the next response with id, skipping
// any other response.
func (m *MCU) waitFor(id uint16) ([]byte, error) {
	data, _, err := m.waitForAny(id, id)
	return data, err
}

// waitForAny is waitFor accepting either of two responses.
func (m *MCU) waitForAny(a, b uint16) ([]byte, uint16, error) {
	deadline := time.Now().Add(m.Timeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, 0, fmt.Errorf("no response after %v", m.Timeout)
		}
		msg, err := m.transport.ReceiveResponse(left)
		if err != nil {
			return nil, 0, err
		}
		payload := msg.Payload
		got, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			continue
		}
		if id := uint16(got); id == a || id == b {
			return payload, id, nil
		}
	}
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary data
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// PrintDictionary writes a summary of the dictionary to w
func (m *MCU) PrintDictionary(w io.Writer) {
	if m.dictionary == nil {
		fmt.Fprintln(w, "No dictionary loaded")
		return
	}

	fmt.Fprintln(w, "=== MCU Dictionary ===")
	fmt.Fprintf(w, "Version: %s\n", m.dictionary.Version)
	fmt.Fprintf(w, "Build: %s\n", m.dictionary.BuildVersions)

	fmt.Fprintln(w, "\nConfig:")
	for _, k := range sortedKeys(m.dictionary.Config) {
		fmt.Fprintf(w, "  %s = %s\n", k, m.dictionary.Config[k])
	}

	printEntries(w, "Commands", m.dictionary.Commands)
	printEntries(w, "Responses", m.dictionary.Responses)

	if len(m.dictionary.Enumerations) > 0 {
		fmt.Fprintf(w, "\nEnumerations (%d):\n", len(m.dictionary.Enumerations))
		for _, name := range sortedKeys(m.dictionary.Enumerations) {
			fmt.Fprintf(w, "  %s: %d values\n", name, len(m.dictionary.Enumerations[name]))
		}
	}
	fmt.Fprintln(w, "======================")
}

func printEntries(w io.Writer, title string, entries map[string]int) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(entries))
	sigs := sortedKeys(entries)
	slices.SortStableFunc(sigs, func(a, b string) int { return entries[a] - entries[b] })
	for _, sig := range sigs {
		fmt.Fprintf(w, "  [%d] %s\n", entries[sig], sig)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CommandID looks up a command by name
func (m *MCU) CommandID(name string) (uint16, error) {
	if m.dictionary == nil {
		return 0, errors.New("dictionary not loaded")
	}
	id, ok := m.commands[name]
	if !ok {
		return 0, fmt.Errorf("unknown command: %s", name)
	}
	return id, nil
}

// SendCommand sends a generic command to the MCU
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return ErrNotConnected
	}
	cmdID, err := m.CommandID(name)
	if err != nil {
		return err
	}
	return m.transport.SendCommand(cmdID, args)
}

// Query sends a command and returns the arguments of the response named
// reply.
func (m *MCU) Query(name string, args func(output protocol.OutputBuffer), reply string) ([]byte, error) {
	if err := m.SendCommand(name, args); err != nil {
		return nil, err
	}
	id, ok := m.responses[reply]
	if !ok {
		return nil, fmt.Errorf("unknown response: %s", reply)
	}
	data, err := m.waitFor(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}
