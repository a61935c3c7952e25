package mqtt

import "sync"

// FakeClient records published messages and lets tests inject inbound ones.
// Safe for concurrent use so tests can drive it while a monitor goroutine
// reads from it.
type FakeClient struct {
	mu       sync.Mutex
	handlers map[string]func(Message)
	messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Connected controls the return value of IsConnected.
	Connected bool

	closed bool
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{handlers: make(map[string]func(Message))}
}

// Subscribe records the handler for later Deliver calls.
func (f *FakeClient) Subscribe(topic string, handler func(Message)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.handlers[topic] = handler
	return nil
}

// Publish records the message.
func (f *FakeClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	f.messages = append(f.messages, Message{Topic: topic, Payload: buf})
	return nil
}

// Deliver invokes the handler subscribed to topic, as the broker would.
// Delivery to an unsubscribed topic is dropped silently.
func (f *FakeClient) Deliver(topic string, payload []byte) {
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler != nil {
		handler(Message{Topic: topic, Payload: payload})
	}
}

// Published returns a copy of all recorded messages in publish order.
func (f *FakeClient) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = make(map[string]func(Message))
	f.messages = nil
	f.PublishError = nil
	f.SubscribeError = nil
	f.Connected = false
	f.closed = false
}
