package service

import (
	"Stagelink/internal/model"
	"context"
	"sync"

	"github.com/goccy/go-json"
)

// fakeConvStore 以 JSON 往返模拟持久化，避免测试与被测代码共享指针
type fakeConvStore struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	saveErr error
	saves   int
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{data: make(map[string]string)}
}

func (s *fakeConvStore) GetConversations(_ context.Context, identity string) ([]*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	raw, ok := s.data[identity]
	if !ok {
		return nil, nil
	}
	var convs []*model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *fakeConvStore) SaveConversations(_ context.Context, identity string, convs []*model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return err
	}
	s.data[identity] = string(data)
	s.saves++
	return nil
}

func (s *fakeConvStore) load(identity string) []*model.Conversation {
	convs, _ := s.GetConversations(context.Background(), identity)
	return convs
}

type fakeNotifStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{data: make(map[string]string)}
}

func (s *fakeNotifStore) GetNotifications(_ context.Context, identity string) ([]*model.NotificationCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	raw, ok := s.data[identity]
	if !ok {
		return nil, nil
	}
	var cards []*model.NotificationCard
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *fakeNotifStore) SaveNotifications(_ context.Context, identity string, cards []*model.NotificationCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(cards)
	if err != nil {
		return err
	}
	s.data[identity] = string(data)
	return nil
}

func (s *fakeNotifStore) load(identity string) []*model.NotificationCard {
	cards, _ := s.GetNotifications(context.Background(), identity)
	return cards
}

// fakeSubscription 捕获一路远端订阅，供测试手动投递批次
type fakeSubscription struct {
	field    string
	identity string
	onBatch  func(batch []*model.Message)
}

func (s *fakeSubscription) deliver(msgs ...*model.Message) {
	s.onBatch(msgs)
}

// fakeMessageRepo 远端消息源替身：Watch 阻塞到 ctx 取消，订阅经 subs 通道暴露
type fakeMessageRepo struct {
	mu        sync.Mutex
	appended  []*model.Message
	appendErr error
	subs      chan *fakeSubscription
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{subs: make(chan *fakeSubscription, 16)}
}

func (s *fakeMessageRepo) Append(_ context.Context, msg *model.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	clone := *msg
	s.appended = append(s.appended, &clone)
	return msg.ID, nil
}

func (s *fakeMessageRepo) Watch(ctx context.Context, field string, identity string, onBatch func(batch []*model.Message)) error {
	s.subs <- &fakeSubscription{field: field, identity: identity, onBatch: onBatch}
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeMessageRepo) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}
