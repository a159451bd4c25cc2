package service

import (
	"Stagelink/internal/model"
	"Stagelink/internal/pkg/consts"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA = "a@stage.link"
	userB = "b@stage.link"
	userC = "c@stage.link"
)

func mkMsg(id, sender, recipient, text string, ts int64) *model.Message {
	return &model.Message{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Text:      text,
		Timestamp: ts,
	}
}

func dumpConvs(t *testing.T, convs []*model.Conversation) string {
	t.Helper()
	data, err := json.Marshal(convs)
	require.NoError(t, err)
	return string(data)
}

func TestReconcile_FirstMessageCreatesConversation(t *testing.T) {
	incoming := []*model.Message{mkMsg("m1", userA, userB, "hello", 1_700_000_000_000)}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	conv := next[0]
	assert.Equal(t, userA, conv.From)
	assert.Equal(t, userB, conv.To)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "m1", conv.Messages[0].ID)
	assert.False(t, conv.Messages[0].Read, "对方发来的消息应为未读")
	assert.Equal(t, 1, ComputeUnread(next, userB))
}

func TestReconcile_DuplicateDeliveryIsIdempotent(t *testing.T) {
	batch := []*model.Message{mkMsg("m1", userA, userB, "hello", 1_700_000_000_000)}

	first := Reconcile(nil, batch, userB)
	second := Reconcile(first, batch, userB)

	require.Len(t, second, 1)
	assert.Len(t, second[0].Messages, 1)
	assert.Equal(t, 1, ComputeUnread(second, userB))
	assert.Equal(t, dumpConvs(t, first), dumpConvs(t, second))
}

func TestReconcile_PairKeyFoldsBothDirections(t *testing.T) {
	incoming := []*model.Message{
		mkMsg("m1", userA, userB, "ping", 1_700_000_000_000),
		mkMsg("m2", userB, userA, "pong", 1_700_000_001_000),
	}

	next := Reconcile(nil, incoming, userA)

	require.Len(t, next, 1, "互换收发方应折叠进同一会话")
	require.Len(t, next[0].Messages, 2)
	assert.Equal(t, "m1", next[0].Messages[0].ID)
	assert.Equal(t, "m2", next[0].Messages[1].ID)
}

func TestReconcile_IdentityNormalization(t *testing.T) {
	incoming := []*model.Message{
		mkMsg("m1", "A@Stage.Link ", userB, "hi", 1_700_000_000_000),
		mkMsg("m2", " a@stage.link", userB, "hi again", 1_700_000_001_000),
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	assert.Equal(t, userA, next[0].From)
	assert.Len(t, next[0].Messages, 2)
}

func TestReconcile_CapKeepsLatestFifty(t *testing.T) {
	var incoming []*model.Message
	for i := 0; i < 60; i++ {
		incoming = append(incoming, mkMsg(
			fmt.Sprintf("m%02d", i), userA, userB, "text",
			1_700_000_000_000+int64(i)*1000,
		))
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	msgs := next[0].Messages
	require.Len(t, msgs, consts.MaxConversationMessages)
	// 最旧的 10 条被截掉，剩余按时间升序
	assert.Equal(t, "m10", msgs[0].ID)
	assert.Equal(t, "m59", msgs[len(msgs)-1].ID)
	for i := 1; i < len(msgs); i++ {
		assert.LessOrEqual(t, msgs[i-1].Timestamp, msgs[i].Timestamp)
	}
}

func TestReconcile_CapEvenWhenDeliveredAcrossBatches(t *testing.T) {
	var cache []*model.Conversation
	for i := 0; i < 70; i++ {
		batch := []*model.Message{mkMsg(
			fmt.Sprintf("m%02d", i), userA, userB, "text",
			1_700_000_000_000+int64(i)*1000,
		)}
		cache = Reconcile(cache, batch, userB)
	}

	require.Len(t, cache, 1)
	require.Len(t, cache[0].Messages, consts.MaxConversationMessages)
	assert.Equal(t, "m20", cache[0].Messages[0].ID)
	assert.Equal(t, "m69", cache[0].Messages[49].ID)
}

func TestReconcile_BatchSplitInvariance(t *testing.T) {
	m1 := mkMsg("m1", userA, userB, "one", 1_700_000_000_000)
	m2 := mkMsg("m2", userA, userB, "two", 1_700_000_001_000)

	together := Reconcile(nil, []*model.Message{m1, m2}, userB)
	split := Reconcile(Reconcile(nil, []*model.Message{m1}, userB), []*model.Message{m2}, userB)
	reversed := Reconcile(Reconcile(nil, []*model.Message{m2}, userB), []*model.Message{m1}, userB)

	assert.Equal(t, dumpConvs(t, together), dumpConvs(t, split))
	assert.Equal(t, dumpConvs(t, together), dumpConvs(t, reversed))
}

func TestReconcile_LastWriteWinsOnSameID(t *testing.T) {
	pending := mkMsg("m1", userA, userB, "hello", 1_700_000_000_000)
	pending.Status = consts.MsgStatusPending

	cache := Reconcile(nil, []*model.Message{pending}, userA)

	echo := mkMsg("m1", userA, userB, "hello", 1_700_000_000_000)
	echo.Status = consts.MsgStatusSent
	next := Reconcile(cache, []*model.Message{echo}, userA)

	require.Len(t, next, 1)
	require.Len(t, next[0].Messages, 1)
	assert.Equal(t, consts.MsgStatusSent, next[0].Messages[0].Status, "同 ID 后到覆盖先到")
}

func TestReconcile_MissingIDFallsBackToTextAndSecond(t *testing.T) {
	tests := []struct {
		name   string
		first  *model.Message
		second *model.Message
		want   int
	}{
		{
			name:   "同文本同秒视为重复",
			first:  mkMsg("", userA, userB, "hello", 1_700_000_000_100),
			second: mkMsg("", userA, userB, "hello", 1_700_000_000_900),
			want:   1,
		},
		{
			name:   "同文本不同秒保留两条",
			first:  mkMsg("", userA, userB, "hello", 1_700_000_000_100),
			second: mkMsg("", userA, userB, "hello", 1_700_000_001_100),
			want:   2,
		},
		{
			name:   "同秒不同文本保留两条",
			first:  mkMsg("", userA, userB, "hello", 1_700_000_000_100),
			second: mkMsg("", userA, userB, "world", 1_700_000_000_900),
			want:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Reconcile(nil, []*model.Message{tt.first, tt.second}, userB)
			require.Len(t, next, 1)
			assert.Len(t, next[0].Messages, tt.want)
		})
	}
}

func TestReconcile_MalformedMessagesDroppedBatchContinues(t *testing.T) {
	incoming := []*model.Message{
		nil,
		mkMsg("m1", "", userB, "no sender", 1_700_000_000_000),
		mkMsg("m2", userA, "", "no recipient", 1_700_000_000_000),
		mkMsg("m3", userA, userB, "no timestamp", 0),
		mkMsg("m4", userA, userB, "valid", 1_700_000_000_000),
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	require.Len(t, next[0].Messages, 1)
	assert.Equal(t, "m4", next[0].Messages[0].ID)
}

func TestReconcile_ReadFollowsSenderConvention(t *testing.T) {
	incoming := []*model.Message{
		mkMsg("m1", userA, userB, "from peer", 1_700_000_000_000),
		mkMsg("m2", userB, userA, "from self", 1_700_000_001_000),
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	require.Len(t, next[0].Messages, 2)
	assert.False(t, next[0].Messages[0].Read)
	assert.True(t, next[0].Messages[1].Read, "自己发出的消息视为已读")
	assert.Equal(t, 1, ComputeUnread(next, userB))
}

func TestReconcile_ProfileFixedAtCreation(t *testing.T) {
	first := mkMsg("m1", userA, userB, "hi", 1_700_000_000_000)
	first.Profile = &model.ProfileSnapshot{Name: "Alice"}
	cache := Reconcile(nil, []*model.Message{first}, userB)

	require.Len(t, cache, 1)
	require.NotNil(t, cache[0].Profile)
	assert.Equal(t, "Alice", cache[0].Profile.Name)

	second := mkMsg("m2", userA, userB, "again", 1_700_000_001_000)
	second.Profile = &model.ProfileSnapshot{Name: "Alice Renamed"}
	next := Reconcile(cache, []*model.Message{second}, userB)

	require.NotNil(t, next[0].Profile)
	assert.Equal(t, "Alice", next[0].Profile.Name, "会话资料快照创建后不再覆盖")
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	existing := Reconcile(nil, []*model.Message{
		mkMsg("m1", userA, userB, "cached", 1_700_000_000_000),
	}, userB)
	before := dumpConvs(t, existing)

	incoming := []*model.Message{mkMsg("m2", userC, userB, "new", 1_700_000_002_000)}
	_ = Reconcile(existing, incoming, userB)

	assert.Equal(t, before, dumpConvs(t, existing), "协调不得修改入参缓存")
	assert.Equal(t, "", incoming[0].Status, "协调不得修改入站消息本体")
}

func TestReconcile_MessageIDsUnique(t *testing.T) {
	var incoming []*model.Message
	for i := 0; i < 30; i++ {
		incoming = append(incoming,
			mkMsg(fmt.Sprintf("m%d", i%10), userA, userB, "dup ids", 1_700_000_000_000+int64(i)*500),
			mkMsg("", userA, userB, fmt.Sprintf("text-%d", i%7), 1_700_000_000_000+int64(i)*500),
		)
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 1)
	seen := make(map[string]bool)
	for _, m := range next[0].Messages {
		assert.False(t, seen[m.ID], "消息 ID 重复: %s", m.ID)
		seen[m.ID] = true
	}
}

func TestReconcile_MultipleConversations(t *testing.T) {
	incoming := []*model.Message{
		mkMsg("m1", userA, userB, "to b", 1_700_000_000_000),
		mkMsg("m2", userC, userB, "to b too", 1_700_000_001_000),
		mkMsg("m3", userB, userA, "reply", 1_700_000_002_000),
	}

	next := Reconcile(nil, incoming, userB)

	require.Len(t, next, 2)
	assert.Equal(t, 2, ComputeUnread(next, userB), "m1/m2 未读，m3 自发已读")
	// 会话 a|b 两条，会话 b|c 一条
	byID := map[string]int{}
	for _, conv := range next {
		byID[conv.ID] = len(conv.Messages)
	}
	assert.Equal(t, 2, byID["a@stage.link|b@stage.link"])
	assert.Equal(t, 1, byID["b@stage.link|c@stage.link"])
}
