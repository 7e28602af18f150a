package services

import (
	"encoding/json"
	"errors"
	"sync"
)

// fakeConn is an in-memory Conn for tests: it records everything sent to it
// and can be told to fail sends.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	failing bool
	closed  bool
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return errors.New("send failed")
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	f.sent = append(f.sent, copied)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// messages decodes every recorded frame
func (f *fakeConn) messages() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	decoded := make([]map[string]interface{}, 0, len(f.sent))
	for _, data := range f.sent {
		var frame map[string]interface{}
		if err := json.Unmarshal(data, &frame); err == nil {
			decoded = append(decoded, frame)
		}
	}
	return decoded
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
