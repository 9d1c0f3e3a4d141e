package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/edgewire/devlink/internal/runtime/config"
	documentpkg "github.com/edgewire/devlink/internal/runtime/document"
	loggingpkg "github.com/edgewire/devlink/internal/runtime/logging"
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type logSink struct {
	mu      sync.Mutex
	entries []logEntry
}

// recordingLogger captures log calls so tests can assert on them. Loggers
// derived through With share the sink of their parent.
type recordingLogger struct {
	sink *logSink
	with loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{sink: &logSink{}}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := loggingpkg.LogFields{}
	for k, v := range l.with {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.with {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{sink: l.sink, with: merged}
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) errorEntries() []logEntry {
	return l.entriesAt("error")
}

func (l *recordingLogger) debugEntries() []logEntry {
	return l.entriesAt("debug")
}

func (l *recordingLogger) entriesAt(level string) []logEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	var out []logEntry
	for _, e := range l.sink.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// fakeBroker records broker calls and lets tests feed inbound messages.
type fakeBroker struct {
	mu           sync.Mutex
	subscribes   []string
	unsubscribes []string
	published    map[string][]*message.Message

	subscribeErr   error
	unsubscribeErr error
	publishErr     error

	inbound chan *message.Message
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		published: make(map[string][]*message.Message),
		inbound:   make(chan *message.Message, 16),
	}
}

func (b *fakeBroker) Subscribe(ctx context.Context, pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.subscribes = append(b.subscribes, pattern)
	return nil
}

func (b *fakeBroker) Unsubscribe(pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribes = append(b.unsubscribes, pattern)
	return b.unsubscribeErr
}

func (b *fakeBroker) Publish(topic string, messages ...*message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published[topic] = append(b.published[topic], messages...)
	return nil
}

func (b *fakeBroker) Inbound() <-chan *message.Message { return b.inbound }

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) publishedTopics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	topics := make([]string, 0, len(b.published))
	for topic := range b.published {
		topics = append(topics, topic)
	}
	return topics
}

func (b *fakeBroker) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, msgs := range b.published {
		n += len(msgs)
	}
	return n
}

// publishedReply captures what a ServerRPC under test published.
type publishedReply struct {
	topic string
	doc   *documentpkg.Document
	size  int
}

// bindRecording wires a ServerRPC to counters instead of a real broker.
type bindRecording struct {
	subscribeCalls   int
	unsubscribeCalls int
	subscribeErr     error
	unsubscribeErr   error
	publishErr       error
	replies          []publishedReply
}

func (r *bindRecording) binding() Binding {
	return Binding{
		SubscribeTopic: func(pattern string) error {
			r.subscribeCalls++
			return r.subscribeErr
		},
		UnsubscribeTopic: func(pattern string) error {
			r.unsubscribeCalls++
			return r.unsubscribeErr
		},
		PublishDocument: func(topic string, doc *documentpkg.Document, estimatedSize int) error {
			if r.publishErr != nil {
				return r.publishErr
			}
			r.replies = append(r.replies, publishedReply{topic: topic, doc: doc, size: estimatedSize})
			return nil
		},
	}
}

func newTestServerRPC(t *testing.T, conf *configpkg.Config) (*ServerRPC, *bindRecording, *recordingLogger) {
	t.Helper()
	log := newRecordingLogger()
	rpc := NewServerRPC(conf, log)
	rec := &bindRecording{}
	rpc.Bind(rec.binding())
	return rpc, rec, log
}

func requestDoc(method string, params documentpkg.Value) *documentpkg.Document {
	doc := documentpkg.New()
	if method != "" {
		doc.Set(RPCMethodField, method)
	}
	if params != nil {
		doc.Set(RPCParamsField, params)
	}
	return doc
}
