package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTransportClosed is returned by calls that were waiting when Close ran.
var ErrTransportClosed = errors.New("transport closed")

// ResponseHandler observes every response block as it arrives.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is one received block.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// HostTransport is the host end of the link: it numbers outgoing blocks,
// waits for their acks and queues incoming responses.
type HostTransport struct {
	port io.ReadWriteCloser

	seq    atomic.Uint32
	synced atomic.Bool

	rx      *FifoArray[byte]
	writeMu sync.Mutex

	acks      chan Message
	responses chan Message
	handler   atomic.Pointer[ResponseHandler]

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewHostTransport starts a reader goroutine on port.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		rx:        NewFifoArray[byte](1024),
		acks:      make(chan Message, 1),
		responses: make(chan Message, 32),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	t.seq.Store(MessageDest)
	t.synced.Store(true)
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for its ack.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	seq := uint8(t.seq.Load())
	block, err := buildBlock(seq, cmdID, args)
	if err != nil {
		return err
	}
	if _, err := t.port.Write(block); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-t.acks:
			if ack.Sequence != nextSeq(seq) {
				// stale ack from an earlier retry
				continue
			}
			t.seq.Store(uint32(ack.Sequence))
			return nil
		case <-timer.C:
			return fmt.Errorf("no ack for seq 0x%02x after %v", seq, timeout)
		case <-t.stop:
			return ErrTransportClosed
		}
	}
}

func buildBlock(seq uint8, cmdID uint16, args func(OutputBuffer)) ([]byte, error) {
	out := NewScratchOutput()
	encodeBlock(out, seq, func(o OutputBuffer) {
		EncodeVLQUint(o, uint32(cmdID))
		if args != nil {
			args(o)
		}
	})
	if len(out.Result()) > MessageLengthMax {
		return nil, fmt.Errorf("block too long: %d bytes (max %d)", len(out.Result()), MessageLengthMax)
	}
	return append([]byte(nil), out.Result()...), nil
}

// ReceiveResponse waits for the next response block.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (Message, error) {
	select {
	case msg := <-t.responses:
		return msg, nil
	case <-time.After(timeout):
		return Message{}, fmt.Errorf("no response after %v", timeout)
	case <-t.stop:
		return Message{}, ErrTransportClosed
	}
}

// SetResponseHandler installs fn; it runs on the reader goroutine.
func (t *HostTransport) SetResponseHandler(fn ResponseHandler) {
	t.handler.Store(&fn)
}

func (t *HostTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, 256)
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		n, err := t.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			if t.rx.PushSlice(buf[:n]) < n {
				// overrun, start over on the next sync byte
				t.rx.Reset()
				t.synced.Store(false)
			}
			t.drain()
		}
	}
}

// drain parses every complete block staged in rx.
func (t *HostTransport) drain() {
	t.rx.Linearize()
	data := t.rx.Slice()
	total := len(data)
	for len(data) > 0 {
		if !t.synced.Load() {
			var found bool
			if data, found = skipToSync(data); found {
				t.synced.Store(true)
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
			t.synced.Store(false)
			continue
		}
		msg := Message{
			Sequence: data[MessagePositionSeq],
			Payload:  append([]byte(nil), data[MessageHeaderSize:n-MessageTrailerSize]...),
		}
		data = data[n:]
		t.route(msg)
	}
	t.rx.Discard(total - len(data))
}

func (t *HostTransport) route(msg Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.acks <- msg:
		default:
			// replace an unclaimed ack with the newer one
			select {
			case <-t.acks:
			default:
			}
			t.acks <- msg
		}
		return
	}
	if h := t.handler.Load(); h != nil {
		payload := msg.Payload
		if id, err := DecodeVLQUint(&payload); err == nil {
			_ = (*h)(uint16(id), &payload)
		}
	}
	select {
	case t.responses <- msg:
	default:
		select {
		case <-t.responses:
		default:
		}
		t.responses <- msg
	}
}

// Close stops the reader and closes the port.
func (t *HostTransport) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	err := t.port.Close()
	<-t.done
	return err
}

// Sequence returns the sequence byte the next command will carry.
func (t *HostTransport) Sequence() uint8 { return uint8(t.seq.Load()) }
