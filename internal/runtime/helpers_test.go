package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"

	configpkg "github.com/asyncflow/asyncflow/internal/runtime/config"
	loggingpkg "github.com/asyncflow/asyncflow/internal/runtime/logging"
)

type publishedRecord struct {
	topic string
	msg   *message.Message
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedRecord
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, publishedRecord{topic: topic, msg: msg})
	}
	if len(messages) == 0 {
		p.published = append(p.published, publishedRecord{topic: topic})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.published))
	for i, rec := range p.published {
		topics[i] = rec.topic
	}
	return topics
}

func (p *testPublisher) Records() []publishedRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]publishedRecord, len(p.published))
	copy(clone, p.published)
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := newTestLogger()
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	return &Service{
		Conf:          &configpkg.Config{},
		Logger:        log,
		router:        router,
		publisher:     &testPublisher{},
		subscriber:    &testSubscriber{},
		protoRegistry: make(map[string]func() proto.Message),
	}
}

func newValidatingTestService(t *testing.T) *Service {
	t.Helper()
	svc := newTestService(t)
	svc.Conf.ValidationEnabled = true
	return svc
}

func testPublisherOf(t *testing.T, svc *Service) *testPublisher {
	t.Helper()
	pub, ok := svc.publisher.(*testPublisher)
	if !ok {
		t.Fatalf("service publisher is %T, not a test publisher", svc.publisher)
	}
	return pub
}
