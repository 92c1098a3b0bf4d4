package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/domain"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/feed"
	"github.com/StephanieCaroll/Sustentech-sub000/internal/service"
)

func TestSend(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	conv := &domain.Conversation{ID: "conv-1", ParticipantOne: "alice", ParticipantTwo: "bob"}

	t.Run("EmptyContentRejected", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		msgRepo := new(MockMessageRepo)
		svc := service.NewMessageService(convRepo, msgRepo, feed.New(), log)

		for _, content := range []string{"", "   ", "\n\t"} {
			msg, err := svc.Send(ctx, "conv-1", "alice", content)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Nil(t, msg)
		}
		// rejected before any read or write
		convRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		msgRepo := new(MockMessageRepo)
		events := feed.New()
		svc := service.NewMessageService(convRepo, msgRepo, events, log)

		sub := events.Subscribe("bob")
		defer sub.Close()

		convRepo.On("GetByID", mock.Anything, "conv-1").Return(conv, nil)
		msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.SenderID == "alice" && m.ReceiverID == "bob" && !m.IsRead
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = "msg-1"
		}).Return(nil)
		convRepo.On("SetLastMessage", mock.Anything, "conv-1", "msg-1").Return(nil)

		msg, err := svc.Send(ctx, "conv-1", "alice", "  olá  ")
		require.NoError(t, err)
		assert.Equal(t, "olá", msg.Content)
		assert.Equal(t, "bob", msg.ReceiverID)
		assert.False(t, msg.IsRead)

		// published to the receiver's change feed
		select {
		case got := <-sub.Events():
			assert.Equal(t, "msg-1", got.ID)
		default:
			t.Fatal("expected a feed event for the receiver")
		}
		convRepo.AssertExpectations(t)
	})

	t.Run("PointerUpdateFailureStillSucceeds", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		msgRepo := new(MockMessageRepo)
		svc := service.NewMessageService(convRepo, msgRepo, feed.New(), log)

		convRepo.On("GetByID", mock.Anything, "conv-1").Return(conv, nil)
		msgRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		convRepo.On("SetLastMessage", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

		msg, err := svc.Send(ctx, "conv-1", "bob", "tudo bem?")
		assert.NoError(t, err)
		assert.NotNil(t, msg)
		assert.Equal(t, "alice", msg.ReceiverID)
	})

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		msgRepo := new(MockMessageRepo)
		svc := service.NewMessageService(convRepo, msgRepo, feed.New(), log)

		convRepo.On("GetByID", mock.Anything, "conv-1").Return(conv, nil)

		msg, err := svc.Send(ctx, "conv-1", "mallory", "oi")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Nil(t, msg)
		msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnknownConversation", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		msgRepo := new(MockMessageRepo)
		svc := service.NewMessageService(convRepo, msgRepo, feed.New(), log)

		convRepo.On("GetByID", mock.Anything, "conv-x").Return(nil, nil)

		msg, err := svc.Send(ctx, "conv-x", "alice", "oi")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, msg)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	conv := &domain.Conversation{ID: "conv-1", ParticipantOne: "alice", ParticipantTwo: "bob"}

	convRepo := new(MockConversationRepo)
	msgRepo := new(MockMessageRepo)
	svc := service.NewMessageService(convRepo, msgRepo, feed.New(), log)

	history := []*domain.Message{
		{ID: "msg-1", ConversationID: "conv-1"},
		{ID: "msg-2", ConversationID: "conv-1"},
	}
	convRepo.On("GetByID", mock.Anything, "conv-1").Return(conv, nil)
	msgRepo.On("ListForConversation", mock.Anything, "conv-1").Return(history, nil)

	msgs, err := svc.List(ctx, "conv-1", "alice")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = svc.List(ctx, "conv-1", "mallory")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
