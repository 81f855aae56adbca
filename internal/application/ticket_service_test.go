package application

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokermock "github.com/gradientlab/ticketflow-go/internal/broker/mock"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
	repomock "github.com/gradientlab/ticketflow-go/internal/repository/mock"
)

// --------------------- Setup ---------------------
func setupTicketServiceMocks(t *testing.T) (*TicketService, *repomock.MockTicketRepo, *brokermock.MockProducer) {
	ctrl := gomock.NewController(t)
	t.Cleanup(func() { ctrl.Finish() })

	mockRepo := repomock.NewMockTicketRepo(ctrl)
	mockProducer := brokermock.NewMockProducer(ctrl)
	svc := NewTicketService(mockRepo, mockProducer)
	return svc, mockRepo, mockProducer
}

// --------------------- CreateTicket ---------------------
func TestCreateTicket_PersistsBeforePublishing(t *testing.T) {
	svc, mockRepo, mockProducer := setupTicketServiceMocks(t)
	ctx := context.Background()

	var savedID string
	save := mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(_ context.Context, tk *ticket.Ticket) {
		savedID = tk.ID
		assert.Equal(t, "2+2?", tk.Question)
		assert.Equal(t, ticket.StatusUninitialized, tk.Status)
		assert.Equal(t, tk.CreatedAt, tk.UpdatedAt)
		assert.Nil(t, tk.Answer)
	}).Return(nil)
	publish := mockProducer.EXPECT().Publish(gomock.Any(), TopicTicketCreated, gomock.Any()).Do(func(_ context.Context, _ string, msg map[string]any) {
		assert.Equal(t, savedID, msg["ticket_id"])
	}).Return(nil)
	gomock.InOrder(save, publish)

	id, err := svc.CreateTicket(ctx, "2+2?")
	require.NoError(t, err)
	assert.Equal(t, savedID, id)
	assert.NotEmpty(t, id)
}

func TestCreateTicket_SaveFails(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(ticket.ErrStorageUnavailable)
	// No Publish expectation: nothing may be queued if persistence failed.

	id, err := svc.CreateTicket(context.Background(), "q")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, ticket.ErrStorageUnavailable)
}

func TestCreateTicket_PublishFails(t *testing.T) {
	svc, mockRepo, mockProducer := setupTicketServiceMocks(t)

	mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	mockProducer.EXPECT().Publish(gomock.Any(), TopicTicketCreated, gomock.Any()).Return(errors.New("stream down"))

	id, err := svc.CreateTicket(context.Background(), "q")
	assert.NotEmpty(t, id, "the persisted ticket id is still reported")
	assert.ErrorIs(t, err, ErrEnqueueFailed)
}

// --------------------- GetTicketStatus / GetTicketData ---------------------
func TestGetTicketStatus_NotFound(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	mockRepo.EXPECT().Get(gomock.Any(), "nonexistent-id").Return(nil, ticket.ErrNotFound)

	_, err := svc.GetTicketStatus(context.Background(), "nonexistent-id")
	assert.ErrorIs(t, err, ticket.ErrNotFound)
}

func TestGetTicketData_Success(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	stored := ticket.New("t-1", "2+2?")
	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(stored, nil)

	got, err := svc.GetTicketData(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.ID)
	assert.Equal(t, "2+2?", got.Question)
}

func TestGetTicketData_StorageUnavailable(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(nil, ticket.ErrStorageUnavailable)

	_, err := svc.GetTicketData(context.Background(), "t-1")
	assert.ErrorIs(t, err, ticket.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ticket.ErrNotFound)
}

// --------------------- UpdateTicketStatus ---------------------
func TestUpdateTicketStatus_Success(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	stored := ticket.New("t-1", "q")
	before := stored.UpdatedAt
	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(stored, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Do(func(_ context.Context, tk *ticket.Ticket) {
		assert.Equal(t, ticket.StatusProcessing, tk.Status)
		assert.GreaterOrEqual(t, tk.UpdatedAt, before)
	}).Return(nil)

	err := svc.UpdateTicketStatus(context.Background(), "t-1", ticket.StatusProcessing)
	assert.NoError(t, err)
}

func TestUpdateTicketStatus_RejectsBackwardTransition(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	done := ticket.New("t-1", "q")
	done.Status = ticket.StatusDone
	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(done, nil)

	err := svc.UpdateTicketStatus(context.Background(), "t-1", ticket.StatusUninitialized)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateTicketStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := setupTicketServiceMocks(t)

	err := svc.UpdateTicketStatus(context.Background(), "t-1", ticket.TicketStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// --------------------- UpdateTicketAnswer ---------------------
func TestUpdateTicketAnswer_MarksDone(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	stored := ticket.New("t-1", "2+2?")
	stored.Status = ticket.StatusProcessing
	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(stored, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Do(func(_ context.Context, tk *ticket.Ticket) {
		assert.Equal(t, ticket.StatusDone, tk.Status)
		require.NotNil(t, tk.Answer)
		assert.Equal(t, "4", *tk.Answer)
	}).Return(nil)

	err := svc.UpdateTicketAnswer(context.Background(), "t-1", "4")
	assert.NoError(t, err)
}

func TestUpdateTicketAnswer_NotFound(t *testing.T) {
	svc, mockRepo, _ := setupTicketServiceMocks(t)

	mockRepo.EXPECT().Get(gomock.Any(), "t-1").Return(nil, ticket.ErrNotFound)

	err := svc.UpdateTicketAnswer(context.Background(), "t-1", "4")
	assert.ErrorIs(t, err, ticket.ErrNotFound)
}
