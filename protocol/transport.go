package protocol

import "sync/atomic"

// CommandHandler decodes and runs one command. data is positioned just
// after the command ID and must be advanced past the arguments.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link: it validates incoming blocks,
// dispatches their commands and acknowledges with the next expected
// sequence number.
type Transport struct {
	synced  atomic.Bool
	nextSeq atomic.Uint32

	output  OutputBuffer
	handler CommandHandler

	onReset func()
	onFlush func()

	errors atomic.Uint32
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{output: output, handler: handler}
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	return t
}

// Receive consumes every complete block at the head of input. A partial
// block is left in place for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	for len(data) > 0 {
		if !t.synced.Load() {
			var found bool
			data, found = skipToSync(data)
			if found {
				t.synced.Store(true)
				t.ack()
			}
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		n, status := scanFrame(data)
		if status == frameIncomplete {
			break
		}
		if status == frameCorrupt {
			t.errors.Add(1)
			t.synced.Store(false)
			continue
		}
		seq := data[MessagePositionSeq]
		payload := data[MessageHeaderSize : n-MessageTrailerSize]
		data = data[n:]

		expected := uint8(t.nextSeq.Load())
		if seq == MessageDest && expected != MessageDest {
			// host restarted its sequence
			expected = MessageDest
			t.nextSeq.Store(MessageDest)
			if t.onReset != nil {
				t.onReset()
			}
		}
		if seq == expected {
			t.nextSeq.Store(uint32(nextSeq(seq)))
			t.dispatch(payload)
		}
		// sent even on mismatch, where it acts as a nak
		t.ack()
	}
	input.Pop(input.Available() - len(data))
}

func (t *Transport) dispatch(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.errors.Add(1)
			t.synced.Store(false)
		}
	}()
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			t.errors.Add(1)
			t.synced.Store(false)
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			t.errors.Add(1)
			return
		}
	}
}

func (t *Transport) ack() {
	encodeBlock(t.output, uint8(t.nextSeq.Load()), nil)
	if t.onFlush != nil {
		t.onFlush()
	}
}

// SendCommand queues a response block carrying cmdID and its arguments.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	encodeBlock(t.output, uint8(t.nextSeq.Load()), func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset returns to the power-on sequence state.
func (t *Transport) Reset() {
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	if t.onReset != nil {
		t.onReset()
	}
}

// Errors counts corrupt blocks and failed handlers since start.
func (t *Transport) Errors() uint32 { return t.errors.Load() }

// SetResetCallback is called when the host restarts its sequence.
func (t *Transport) SetResetCallback(fn func()) { t.onReset = fn }

// SetFlushCallback is called after every ack so the target can push it
// out before any response.
func (t *Transport) SetFlushCallback(fn func()) { t.onFlush = fn }
