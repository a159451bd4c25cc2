package service

import (
	"Stagelink/internal/config"
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/mongo"
	"Stagelink/internal/pkg/redis"
	"Stagelink/internal/pkg/util"
	"Stagelink/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const maxResubscribeDelay = 30 * time.Second

// Snapshot 每轮协调后对外发布的派生状态
type Snapshot struct {
	Identity      string                `json:"identity"`
	Conversations []*model.Conversation `json:"conversations"`
	Unread        int                   `json:"unread"`
}

// Observer 进程内观察者回调
type Observer func(snapshot *Snapshot)

// SyncService 同步引擎：订阅生命周期、协调通道与出站发送
type SyncService interface {
	Start(identity string) error
	Stop()
	SendMessage(ctx context.Context, recipient, text string, profile *model.ProfileSnapshot) (string, error)
	IngestPushPayload(ctx context.Context, payload *model.PushPayload) error
	SetArchived(ctx context.Context, peer string, archived bool) error
	Conversations(ctx context.Context) ([]*model.Conversation, error)
	UnreadCount() int
	RefreshUnread(ctx context.Context) (int, error)
	AddObserver(fn Observer)
}

type syncServiceImpl struct {
	convStore    repository.ConversationStore
	messageRepo  mongo.MessageRepo
	notifService NotificationService
	resubDelay   time.Duration

	mu         sync.Mutex
	identity   string
	generation uint64
	cancel     context.CancelFunc
	unread     int
	observers  []Observer
	wg         sync.WaitGroup
}

func NewSyncService(
	convStore repository.ConversationStore,
	messageRepo mongo.MessageRepo,
	notifService NotificationService,
	cfg config.SyncConfig,
) SyncService {
	delay := time.Duration(cfg.ResubscribeDelay) * time.Second
	if delay <= 0 {
		delay = time.Second
	}
	return &syncServiceImpl{
		convStore:    convStore,
		messageRepo:  messageRepo,
		notifService: notifService,
		resubDelay:   delay,
	}
}

// Start 以给定身份启动同步
// 先彻底拆除旧身份的订阅再建立新订阅，避免跨账号数据泄漏
func (s *syncServiceImpl) Start(identity string) error {
	identity = util.NormalizeIdentity(identity)
	if identity == "" {
		return ErrIdentityEmpty
	}
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.identity = identity
	s.cancel = cancel
	s.mu.Unlock()

	// 冷启动：零事件跑一遍全量协调，观察者无需等待推送即可拿到一致快照
	s.runPass(ctx, gen, nil)

	s.wg.Add(2)
	go s.watchLoop(ctx, gen, mongo.FieldSender, identity)
	go s.watchLoop(ctx, gen, mongo.FieldRecipient, identity)

	log.Info("同步引擎已启动", "identity", identity)
	return nil
}

// Stop 注销当前身份并取消全部订阅
// 代数自增后，注销前已在途的回调会在写入前被丢弃
func (s *syncServiceImpl) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		log.Info("同步引擎已停止", "identity", s.identity)
	}
	s.identity = ""
	s.generation++
	s.unread = 0
	s.mu.Unlock()

	s.wg.Wait()
}

// SendMessage 出站发送：远端写入 + 乐观本地合并
// 返回远端消息 ID；发送失败向调用方传播错误以便重试
func (s *syncServiceImpl) SendMessage(ctx context.Context, recipient, text string, profile *model.ProfileSnapshot) (string, error) {
	s.mu.Lock()
	identity, gen := s.identity, s.generation
	s.mu.Unlock()
	if identity == "" {
		return "", ErrEngineStopped
	}

	recipient = util.NormalizeIdentity(recipient)
	if recipient == "" {
		return "", ErrTargetInvalid
	}
	// 自发自收：静默丢弃，不产生会话
	if recipient == identity {
		return "", nil
	}

	msg := &model.Message{
		ID:        uuid.NewString(),
		Sender:    identity,
		Recipient: recipient,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Status:    consts.MsgStatusPending,
		Profile:   profile,
	}

	// 乐观合并：UI 不等回声；稍后的远端回声携带同一 ID，在去重下是空操作
	s.runPass(ctx, gen, []*model.Message{msg})

	remoteID, err := s.messageRepo.Append(ctx, msg)
	if err != nil {
		failed := *msg
		failed.Status = consts.MsgStatusFailed
		failed.Profile = nil
		s.runPass(ctx, gen, []*model.Message{&failed})
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	confirmed := *msg
	confirmed.Status = consts.MsgStatusSent
	confirmed.Profile = nil
	s.runPass(ctx, gen, []*model.Message{&confirmed})

	return remoteID, nil
}

// IngestPushPayload 平台推送入口
// 卡片入列走侧边通道；聊天形载荷额外折叠进协调通道，遵守同一套去重与截窗规则
func (s *syncServiceImpl) IngestPushPayload(ctx context.Context, payload *model.PushPayload) error {
	s.mu.Lock()
	identity, gen := s.identity, s.generation
	s.mu.Unlock()
	if identity == "" {
		return ErrEngineStopped
	}

	_, err := s.notifService.Ingest(ctx, identity, payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrPayloadDuplicate):
		// 重复推送：卡片拒收，聊天折叠照常进行（协调本身幂等）
		log.InfoContext(ctx, "忽略重复通知卡片", "type", payload.Type)
	default:
		return err
	}

	if payload.Sender != "" && payload.Body != "" {
		ts, terr := util.NormalizeTimestamp(payload.Timestamp)
		if terr != nil {
			ts = time.Now().UnixMilli()
		}
		msg := &model.Message{
			ID:        payload.ID,
			Sender:    payload.Sender,
			Recipient: identity,
			Text:      payload.Body,
			Timestamp: ts,
		}
		s.runPass(ctx, gen, []*model.Message{msg})
	}
	return nil
}

// SetArchived 归档或取消归档某个对端的会话
func (s *syncServiceImpl) SetArchived(ctx context.Context, peer string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := s.identity
	if identity == "" {
		return ErrEngineStopped
	}

	convs, err := s.convStore.GetConversations(ctx, identity)
	if err != nil {
		return err
	}

	key := util.PairKey(identity, peer)
	for _, conv := range convs {
		if util.PairKey(conv.From, conv.To) != key {
			continue
		}
		conv.Archived = archived
		if err := s.convStore.SaveConversations(ctx, identity, convs); err != nil {
			return err
		}
		s.unread = ComputeUnread(convs, identity)
		s.publishLocked(ctx, identity, convs, s.unread)
		return nil
	}
	return ErrConversationNotFound
}

// Conversations 读取当前身份的会话缓存
func (s *syncServiceImpl) Conversations(ctx context.Context) ([]*model.Conversation, error) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == "" {
		return nil, ErrEngineStopped
	}
	return s.convStore.GetConversations(ctx, identity)
}

// UnreadCount 上一轮协调缓存的未读数
func (s *syncServiceImpl) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// RefreshUnread 回到前台时的全量刷新：跑一遍零事件协调并重算未读数
func (s *syncServiceImpl) RefreshUnread(ctx context.Context) (int, error) {
	s.mu.Lock()
	identity, gen := s.identity, s.generation
	s.mu.Unlock()
	if identity == "" {
		return 0, ErrEngineStopped
	}
	s.runPass(ctx, gen, nil)
	return s.UnreadCount(), nil
}

func (s *syncServiceImpl) AddObserver(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// watchLoop 维持单路远端订阅，流中断时按指数退避重建
// 订阅失败只重试，绝不触碰本地缓存
func (s *syncServiceImpl) watchLoop(ctx context.Context, gen uint64, field, identity string) {
	defer s.wg.Done()

	delay := s.resubDelay
	for {
		err := s.messageRepo.Watch(ctx, field, identity, func(batch []*model.Message) {
			s.runPass(ctx, gen, batch)
		})
		if ctx.Err() != nil {
			return
		}
		log.Warn("远端订阅中断，准备重建", "field", field, "err", err, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay *= 2
		if delay > maxResubscribeDelay {
			delay = maxResubscribeDelay
		}
	}
}

// runPass 一次协调通道：读缓存 -> 合并 -> 写缓存 -> 重算未读 -> 发布
// 全程持锁，同一会话集上的两次通道不会交错
func (s *syncServiceImpl) runPass(ctx context.Context, gen uint64, batch []*model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 注销或换号后迟到的回调：无条件丢弃，防止旧身份数据复活
	if gen != s.generation {
		log.WarnContext(ctx, "丢弃过期订阅批次", "size", len(batch))
		return
	}
	identity := s.identity

	convs, err := s.convStore.GetConversations(ctx, identity)
	if err != nil {
		// 通道中止，上一份缓存保持原样，下一批从头重试
		log.ErrorContext(ctx, "读取会话缓存失败，跳过本次协调", "err", err)
		return
	}

	next := Reconcile(convs, batch, identity)

	if err := s.convStore.SaveConversations(ctx, identity, next); err != nil {
		log.ErrorContext(ctx, "写入会话缓存失败，保留上一份状态", "err", err)
		return
	}

	s.unread = ComputeUnread(next, identity)
	s.publishLocked(ctx, identity, next, s.unread)
}

// publishLocked 调用方需持有 s.mu
func (s *syncServiceImpl) publishLocked(ctx context.Context, identity string, convs []*model.Conversation, unread int) {
	snap := &Snapshot{Identity: identity, Conversations: convs, Unread: unread}
	for _, fn := range s.observers {
		fn(snap)
	}

	// 未接入 Redis 总线时（嵌入式使用）只回调进程内观察者
	if redis.GetRdbClient() == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.ErrorContext(ctx, "序列化派生状态失败", "err", err)
		return
	}
	if err := redis.Publish(ctx, consts.IMUserKey+identity, data); err != nil {
		log.WarnContext(ctx, "发布派生状态失败", "err", err)
	}
	if err := redis.SetValue(ctx, consts.IMUnreadKey+identity, unread); err != nil {
		log.WarnContext(ctx, "写入未读数缓存失败", "err", err)
	}
}
