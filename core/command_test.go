package core

import (
	"errors"
	"strings"
	"testing"

	"motionstation/protocol"
)

// recordedResponse is one block passed to a ResponseSender.
type recordedResponse struct {
	id      uint16
	payload []byte
}

type recordingSender struct {
	sent []recordedResponse
}

func (s *recordingSender) SendCommand(cmdID uint16, args func(output protocol.OutputBuffer)) {
	out := protocol.NewScratchOutput()
	if args != nil {
		args(out)
	}
	s.sent = append(s.sent, recordedResponse{cmdID, append([]byte(nil), out.Result()...)})
}

func (s *recordingSender) last(t *testing.T) recordedResponse {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("Expected a response, got none")
	}
	return s.sent[len(s.sent)-1]
}

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	handler := func(data *[]byte) error {
		called = true
		return nil
	}

	id := registry.Register("test_command", "arg=%u", handler)
	if id != 0 {
		t.Errorf("Expected first command to have ID 0, got %d", id)
	}

	cmd, ok := registry.GetCommand(id)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}
	if cmd.Signature() != "test_command arg=%u" {
		t.Errorf("Expected signature 'test_command arg=%%u', got '%s'", cmd.Signature())
	}

	var data []byte
	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}

	err := registry.Dispatch(999, &data)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
	var de *DispatchError
	if !errors.As(err, &de) || de.ID != 999 {
		t.Errorf("Expected DispatchError for ID 999, got %v", err)
	}
}

func TestCommandRegistryMultiple(t *testing.T) {
	registry := NewCommandRegistry()

	id1 := registry.Register("command1", "arg1=%u", func(data *[]byte) error { return nil })
	id2 := registry.Register("command2", "arg2=%u", func(data *[]byte) error { return nil })
	id3 := registry.Register("command3", "arg3=%u", func(data *[]byte) error { return nil })

	if id1 != 0 || id2 != 1 || id3 != 2 {
		t.Errorf("Command IDs not sequential: %d, %d, %d", id1, id2, id3)
	}
	if again := registry.Register("command2", "other=%c", nil); again != id2 {
		t.Errorf("Expected duplicate name to keep ID %d, got %d", id2, again)
	}
	if registry.Count() != 3 {
		t.Errorf("Expected 3 commands, got %d", registry.Count())
	}
}

func TestCommandRegistryDictionary(t *testing.T) {
	registry := NewCommandRegistry()

	registry.Register("get_status", "", func(data *[]byte) error { return nil })
	registry.Register("status", "state=%c", nil)

	want := "get_status\nstatus state=%c\n"
	if got := registry.GetDictionary(); got != want {
		t.Errorf("Expected dictionary %q, got %q", want, got)
	}
}

func TestCommandWithArguments(t *testing.T) {
	registry := NewCommandRegistry()

	var receivedValue uint32
	handler := func(data *[]byte) error {
		val, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		receivedValue = val
		return nil
	}

	id := registry.Register("test_args", "value=%u", handler)

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 12345)
	data := output.Result()

	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if receivedValue != 12345 {
		t.Errorf("Expected value 12345, got %d", receivedValue)
	}

	// truncated arguments surface the decode error
	data = nil
	if err := registry.Dispatch(id, &data); err == nil {
		t.Error("Expected decode error on empty arguments")
	}
}

func TestSendResponse(t *testing.T) {
	registry := NewCommandRegistry()
	registry.Register("ping", "", func(data *[]byte) error { return nil })
	pong := registry.Register("pong", "value=%u", nil)

	// dropped without a transport
	registry.SendResponse("pong", nil)

	sender := &recordingSender{}
	registry.SetTransport(sender)
	registry.SendResponse("pong", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, 7)
	})
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 response, got %d", len(sender.sent))
	}
	if r := sender.last(t); r.id != pong || len(r.payload) != 1 || r.payload[0] != 7 {
		t.Errorf("Expected pong(7), got %+v", r)
	}

	var data []byte
	if err := registry.Dispatch(pong, &data); !errors.Is(err, ErrNotCommand) || !strings.Contains(err.Error(), "pong") {
		t.Errorf("Expected dispatching a response to fail, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for an unregistered response")
		}
	}()
	registry.SendResponse("missing", nil)
}

func TestGlobalRegistry(t *testing.T) {
	RegisterCommand("global_test", "arg=%u", func(data *[]byte) error {
		return nil
	})

	if !strings.Contains(GetGlobalRegistry().GetDictionary(), "global_test arg=%u\n") {
		t.Error("Global registry dictionary is missing global_test")
	}
}
