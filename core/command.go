package core

import (
	"errors"
	"sync"

	"motionstation/protocol"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command is one dictionary entry. Responses have no handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument format, e.g. "steps=%hu dir=%c"
	Handler CommandHandler
}

// ResponseSender queues an outgoing block; protocol.Transport implements it.
type ResponseSender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotCommand     = errors.New("response has no handler")
)

// DispatchError names the block that could not be dispatched.
type DispatchError struct {
	ID   uint16
	Name string
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Name == "" {
		return e.Err.Error() + " " + itoa(int(e.ID))
	}
	return e.Err.Error() + ": " + e.Name
}

func (e *DispatchError) Unwrap() error { return e.Err }

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu        sync.RWMutex
	commands  map[uint16]*Command
	nameToID  map[string]uint16
	nextID    uint16
	transport ResponseSender
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand registers a command handler on the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse registers a response message (MCU -> Host)
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command to the registry. IDs follow registration order;
// registering a name twice returns the first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return &DispatchError{ID: cmdID, Err: ErrUnknownCommand}
	}
	if cmd.Handler == nil {
		return &DispatchError{ID: cmdID, Name: cmd.Name, Err: ErrNotCommand}
	}
	return cmd.Handler(data)
}

// Entries returns the commands in ID order.
func (r *CommandRegistry) Entries() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.commands))
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			out = append(out, cmd)
		}
	}
	return out
}

// GetDictionary returns one "name format" line per command, in ID order.
func (r *CommandRegistry) GetDictionary() string {
	var dict []byte
	for _, cmd := range r.Entries() {
		dict = append(dict, cmd.Signature()...)
		dict = append(dict, '\n')
	}
	return string(dict)
}

// Signature is the dictionary key: the name followed by the format.
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// SetTransport routes responses to t.
func (r *CommandRegistry) SetTransport(t ResponseSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport = t
}

// SendResponse encodes a registered response. Without a transport the
// response is dropped.
func (r *CommandRegistry) SendResponse(name string, args func(output protocol.OutputBuffer)) {
	r.mu.RLock()
	t := r.transport
	id, ok := r.nameToID[name]
	r.mu.RUnlock()

	if !ok {
		// all responses are registered at init
		panic("Response not registered: " + name)
	}
	if t != nil {
		t.SendCommand(id, args)
	}
}

// DispatchCommand is a convenience function using the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

// SetGlobalTransport sets the transport the global registry answers on
func SetGlobalTransport(t ResponseSender) {
	globalRegistry.SetTransport(t)
}

// SendResponse sends a response through the global registry
func SendResponse(name string, args func(output protocol.OutputBuffer)) {
	globalRegistry.SendResponse(name, args)
}
