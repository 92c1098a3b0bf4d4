package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
	"go.uber.org/zap"
)

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindByParticipants(ctx context.Context, one, two string) (*domain.Conversation, error) {
	args := m.Called(ctx, one, two)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) SetLastMessage(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkAllRead(ctx context.Context, conversationID, receiverID string) error {
	args := m.Called(ctx, conversationID, receiverID)
	return args.Error(0)
}

func (m *MockMessageRepo) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	args := m.Called(ctx, conversationID, receiverID)
	return args.Int(0), args.Error(1)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func newConversationService(convs *MockConversationRepo, msgs *MockMessageRepo, profiles *MockProfileRepo) *service.ConversationService {
	log := zap.NewNop().Sugar()
	profileSvc := service.NewProfileService(profiles, log)
	return service.NewConversationService(convs, msgs, profileSvc, log)
}

func TestFindOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesWhenMissing", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := newConversationService(convRepo, new(MockMessageRepo), new(MockProfileRepo))

		convRepo.On("FindByParticipants", mock.Anything, "alice", "bob").Return(nil, nil)
		convRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.ParticipantOne == "alice" && c.ParticipantTwo == "bob"
		})).Return(nil)

		conv, err := svc.FindOrCreate(ctx, "bob", "alice")
		assert.NoError(t, err)
		assert.NotNil(t, conv)
		assert.Equal(t, "alice", conv.ParticipantOne)
		assert.Equal(t, "bob", conv.ParticipantTwo)
		convRepo.AssertExpectations(t)
	})

	t.Run("SymmetricLookup", func(t *testing.T) {
		existing := &domain.Conversation{ID: "conv-1", ParticipantOne: "alice", ParticipantTwo: "bob"}

		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			convRepo := new(MockConversationRepo)
			svc := newConversationService(convRepo, new(MockMessageRepo), new(MockProfileRepo))

			// the same canonical pair is queried no matter who initiates
			convRepo.On("FindByParticipants", mock.Anything, "alice", "bob").Return(existing, nil)

			conv, err := svc.FindOrCreate(ctx, pair[0], pair[1])
			assert.NoError(t, err)
			assert.Equal(t, "conv-1", conv.ID)
			convRepo.AssertExpectations(t)
		}
	})

	t.Run("ConflictTreatedAsFound", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := newConversationService(convRepo, new(MockMessageRepo), new(MockProfileRepo))

		winner := &domain.Conversation{ID: "conv-2", ParticipantOne: "alice", ParticipantTwo: "bob"}
		convRepo.On("FindByParticipants", mock.Anything, "alice", "bob").Return(nil, nil).Once()
		convRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)
		convRepo.On("FindByParticipants", mock.Anything, "alice", "bob").Return(winner, nil).Once()

		conv, err := svc.FindOrCreate(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, "conv-2", conv.ID)
		convRepo.AssertExpectations(t)
	})

	t.Run("SelfConversationRejected", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := newConversationService(convRepo, new(MockMessageRepo), new(MockProfileRepo))

		conv, err := svc.FindOrCreate(ctx, "alice", "alice")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Nil(t, conv)
		convRepo.AssertNotCalled(t, "FindByParticipants", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	lastID := "msg-9"

	convRepo := new(MockConversationRepo)
	msgRepo := new(MockMessageRepo)
	profileRepo := new(MockProfileRepo)
	svc := newConversationService(convRepo, msgRepo, profileRepo)

	convs := []*domain.Conversation{
		{ID: "conv-1", ParticipantOne: "alice", ParticipantTwo: "bob", LastMessageID: &lastID},
		{ID: "conv-2", ParticipantOne: "bob", ParticipantTwo: "carol"},
	}
	convRepo.On("ListForUser", mock.Anything, "bob").Return(convs, nil)

	profileRepo.On("GetByID", mock.Anything, "alice").Return(&domain.Profile{ID: "alice", Name: "Alice"}, nil)
	// missing profile falls back to the placeholder
	profileRepo.On("GetByID", mock.Anything, "carol").Return(nil, nil)

	last := &domain.Message{ID: lastID, ConversationID: "conv-1", SenderID: "alice", ReceiverID: "bob", Content: "oi", CreatedAt: time.Now()}
	msgRepo.On("GetByID", mock.Anything, lastID).Return(last, nil)
	msgRepo.On("CountUnread", mock.Anything, "conv-1", "bob").Return(3, nil)
	msgRepo.On("CountUnread", mock.Anything, "conv-2", "bob").Return(0, nil)

	entries, err := svc.Inbox(ctx, "bob")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	assert.Equal(t, "conv-1", entries[0].ConversationID)
	assert.Equal(t, "Alice", entries[0].Counterpart.Name)
	assert.Equal(t, lastID, entries[0].LastMessage.ID)
	assert.Equal(t, 3, entries[0].UnreadCount)

	assert.Equal(t, "conv-2", entries[1].ConversationID)
	assert.Equal(t, service.FallbackName, entries[1].Counterpart.Name)
	assert.Nil(t, entries[1].LastMessage)
	assert.Equal(t, 0, entries[1].UnreadCount)
}
