package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging_go/internal/domain"
	"messaging_go/internal/service"
)

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation, participants []domain.Participant) error {
	args := m.Called(ctx, c, participants)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindTwoParty(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) UpdateLastSeen(ctx context.Context, conversationID, userID int64) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) ListParticipants(ctx context.Context, conversationID int64) ([]*domain.Participant, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, messageID int64) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) LatestPerConversation(ctx context.Context, conversationIDs []int64) (map[int64]*domain.Message, error) {
	args := m.Called(ctx, conversationIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Int(0), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) Resolve(ctx context.Context, id int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func newService() (*service.MessagingService, *MockConversationRepo, *MockParticipantRepo, *MockMessageRepo, *MockUserDirectory) {
	convs := new(MockConversationRepo)
	parts := new(MockParticipantRepo)
	msgs := new(MockMessageRepo)
	users := new(MockUserDirectory)
	return service.NewMessagingService(convs, parts, msgs, users), convs, parts, msgs, users
}

func TestFindOrCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsExisting", func(t *testing.T) {
		svc, convs, _, _, _ := newService()
		existing := &domain.Conversation{ID: 7, Kind: domain.KindClientTechnician}
		convs.On("FindTwoParty", ctx, int64(1), int64(2)).Return(existing, nil)

		conv, err := svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientTechnician)
		require.NoError(t, err)
		assert.Equal(t, int64(7), conv.ID)
		convs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreatesWhenMissing", func(t *testing.T) {
		svc, convs, _, _, users := newService()
		convs.On("FindTwoParty", ctx, int64(1), int64(2)).Return(nil, nil)
		users.On("Resolve", ctx, int64(1)).Return(&domain.UserProfile{ID: 1, DisplayName: "Alice"}, nil)
		users.On("Resolve", ctx, int64(2)).Return(&domain.UserProfile{ID: 2, DisplayName: "Bob", IsOperator: true}, nil)
		convs.On("Create", ctx, mock.AnythingOfType("*domain.Conversation"), mock.AnythingOfType("[]domain.Participant")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.Conversation).ID = 11
			}).Return(nil)

		conv, err := svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientOperator)
		require.NoError(t, err)
		assert.Equal(t, int64(11), conv.ID)

		participants := convs.Calls[1].Arguments.Get(2).([]domain.Participant)
		require.Len(t, participants, 2)
		assert.False(t, participants[0].IsOperator)
		assert.True(t, participants[1].IsOperator)
	})

	t.Run("ResolvesRaceToWinner", func(t *testing.T) {
		svc, convs, _, _, users := newService()
		winner := &domain.Conversation{ID: 3, Kind: domain.KindClientTechnician}
		// First lookup sees nothing, the insert loses the race, the
		// re-query returns the winner's row.
		convs.On("FindTwoParty", ctx, int64(1), int64(2)).Return(nil, nil).Once()
		users.On("Resolve", ctx, mock.AnythingOfType("int64")).Return(&domain.UserProfile{}, nil)
		convs.On("Create", ctx, mock.Anything, mock.Anything).Return(domain.ErrConflict)
		convs.On("FindTwoParty", ctx, int64(1), int64(2)).Return(winner, nil).Once()

		conv, err := svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientTechnician)
		require.NoError(t, err)
		assert.Equal(t, int64(3), conv.ID)
	})

	t.Run("RejectsUnknownKind", func(t *testing.T) {
		svc, _, _, _, _ := newService()
		_, err := svc.FindOrCreateConversation(ctx, 1, 2, domain.ConversationKind("CARRIER_PIGEON"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("RejectsSelfPair", func(t *testing.T) {
		svc, _, _, _, _ := newService()
		_, err := svc.FindOrCreateConversation(ctx, 1, 1, domain.KindClientOperator)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("FailsOnUnknownPeer", func(t *testing.T) {
		svc, convs, _, _, users := newService()
		convs.On("FindTwoParty", ctx, int64(1), int64(2)).Return(nil, nil)
		users.On("Resolve", ctx, int64(1)).Return(&domain.UserProfile{ID: 1}, nil)
		users.On("Resolve", ctx, int64(2)).Return(nil, domain.ErrNotFound)

		_, err := svc.FindOrCreateConversation(ctx, 1, 2, domain.KindClientOperator)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		convs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsWithSenderProjection", func(t *testing.T) {
		svc, convs, _, msgs, users := newService()
		convs.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{ID: 5}, nil)
		users.On("Resolve", ctx, int64(1)).Return(&domain.UserProfile{ID: 1, DisplayName: "Alice"}, nil)
		msgs.On("Create", ctx, mock.AnythingOfType("*domain.Message")).
			Run(func(args mock.Arguments) {
				m := args.Get(1).(*domain.Message)
				m.ID = 42
				m.CreatedAt = time.Now()
			}).Return(nil)

		resp, err := svc.SendMessage(ctx, service.SendMessageInput{
			ConversationID: 5, SenderID: 1, Content: "hello", Type: domain.MessageText,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), resp.ID)
		assert.False(t, resp.IsRead)
		require.NotNil(t, resp.Sender)
		assert.Equal(t, "Alice", resp.Sender.DisplayName)

		stored := msgs.Calls[0].Arguments.Get(1).(*domain.Message)
		require.NotNil(t, stored.SenderID)
		assert.Equal(t, int64(1), *stored.SenderID)
	})

	t.Run("RejectsClosedConversation", func(t *testing.T) {
		svc, convs, _, msgs, _ := newService()
		convs.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{ID: 5, Closed: true}, nil)

		_, err := svc.SendMessage(ctx, service.SendMessageInput{
			ConversationID: 5, SenderID: 1, Content: "hello", Type: domain.MessageText,
		})
		assert.ErrorIs(t, err, domain.ErrConversationClosed)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("RejectsDeletedConversation", func(t *testing.T) {
		svc, convs, _, _, _ := newService()
		convs.On("GetByID", ctx, int64(5)).Return(&domain.Conversation{ID: 5, IsDeleted: true}, nil)

		_, err := svc.SendMessage(ctx, service.SendMessageInput{
			ConversationID: 5, SenderID: 1, Content: "hello", Type: domain.MessageText,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("RejectsUnknownConversation", func(t *testing.T) {
		svc, convs, _, _, _ := newService()
		convs.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)

		_, err := svc.SendMessage(ctx, service.SendMessageInput{
			ConversationID: 9, SenderID: 1, Content: "hello", Type: domain.MessageText,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		svc, _, _, _, _ := newService()
		_, err := svc.SendMessage(ctx, service.SendMessageInput{
			ConversationID: 5, SenderID: 1, Content: "hello", Type: domain.MessageType("VOICE"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestGetUserConversationSummaries(t *testing.T) {
	ctx := context.Background()
	svc, convs, parts, msgs, users := newService()

	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sender := int64(2)

	convs.On("ListForUser", ctx, int64(1)).Return([]*domain.Conversation{
		{ID: 10, Kind: domain.KindClientTechnician},
		{ID: 20, Kind: domain.KindClientOperator},
		{ID: 30, Kind: domain.KindClientTechnician},
	}, nil)
	msgs.On("LatestPerConversation", ctx, []int64{10, 20, 30}).Return(map[int64]*domain.Message{
		10: {ID: 100, ConversationID: 10, SenderID: &sender, Type: domain.MessageText, Content: "see you then", CreatedAt: older},
		20: {ID: 200, ConversationID: 20, SenderID: &sender, Type: domain.MessageText, Content: "quote attached", CreatedAt: newer},
	}, nil)
	msgs.On("UnreadCount", ctx, int64(10), int64(1)).Return(2, nil)
	msgs.On("UnreadCount", ctx, int64(20), int64(1)).Return(0, nil)
	msgs.On("UnreadCount", ctx, int64(30), int64(1)).Return(0, nil)
	parts.On("ListParticipants", ctx, mock.AnythingOfType("int64")).Return([]*domain.Participant{
		{UserID: 1}, {UserID: 2},
	}, nil)
	users.On("Resolve", ctx, int64(2)).Return(&domain.UserProfile{ID: 2, DisplayName: "Bob"}, nil)

	res, err := svc.GetUserConversationSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, res, 3)

	// Latest message first; the empty conversation sorts last with nil
	// last-message fields.
	assert.Equal(t, int64(20), res[0].ConversationID)
	assert.Equal(t, int64(10), res[1].ConversationID)
	assert.Equal(t, int64(30), res[2].ConversationID)

	assert.Equal(t, "quote attached", *res[0].LastMessage)
	assert.Equal(t, 2, res[1].UnreadCount)
	assert.Nil(t, res[2].LastMessage)
	assert.Nil(t, res[2].LastMessageAt)

	require.Len(t, res[0].Peers, 1)
	assert.Equal(t, "Bob", res[0].Peers[0].DisplayName)
}

func TestGetUserConversationSummariesSkipsRemovedPeer(t *testing.T) {
	ctx := context.Background()
	svc, convs, parts, msgs, users := newService()

	convs.On("ListForUser", ctx, int64(1)).Return([]*domain.Conversation{{ID: 10}}, nil)
	msgs.On("LatestPerConversation", ctx, []int64{10}).Return(map[int64]*domain.Message{}, nil)
	msgs.On("UnreadCount", ctx, int64(10), int64(1)).Return(0, nil)
	parts.On("ListParticipants", ctx, int64(10)).Return([]*domain.Participant{
		{UserID: 1}, {UserID: 2},
	}, nil)
	users.On("Resolve", ctx, int64(2)).Return(nil, domain.ErrNotFound)

	res, err := svc.GetUserConversationSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Empty(t, res[0].Peers)
}

func TestMarkMessageRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _, msgs, _ := newService()
	msgs.On("MarkRead", ctx, int64(42)).Return(&domain.Message{ID: 42, IsRead: true}, nil)

	m, err := svc.MarkMessageRead(ctx, 42)
	require.NoError(t, err)
	assert.True(t, m.IsRead)
}
