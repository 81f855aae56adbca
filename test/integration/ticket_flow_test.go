package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradientlab/ticketflow-go/internal/application"
	"github.com/gradientlab/ticketflow-go/internal/application/processor"
	"github.com/gradientlab/ticketflow-go/internal/broker"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
	"github.com/gradientlab/ticketflow-go/internal/llm"
	"github.com/gradientlab/ticketflow-go/internal/repository"
	"github.com/gradientlab/ticketflow-go/internal/testutils"
)

var rdb *redis.Client

func TestMain(m *testing.M) {
	client, cleanup := testutils.SetupRedisForIntegration()
	rdb = client
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// streamKey isolates each test on its own stream.
func streamKey(t *testing.T) string {
	t.Helper()
	return "test-stream-" + uuid.NewString()
}

type instantLLM struct{}

func (instantLLM) Generate(ctx context.Context, prompt string) (*llm.Response, error) {
	return &llm.Response{Text: "answer to: " + prompt}, nil
}

func TestTicketFlow_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := streamKey(t)
	repo := repository.NewRedisTicketRepo(rdb)
	svc := application.NewTicketService(repo, broker.NewRedisProducer(rdb, key))

	consumer := broker.NewRedisConsumer(rdb, key, "ticket-processors", "it-worker-1")
	proc := processor.New(svc, llm.NewService(instantLLM{}), consumer)
	go func() { _ = proc.Run(ctx) }()

	id, err := svc.CreateTicket(ctx, "2+2?")
	require.NoError(t, err)

	status, err := svc.GetTicketStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusUninitialized, status)

	require.Eventually(t, func() bool {
		tk, err := repo.Get(context.Background(), id)
		return err == nil && tk.Status == ticket.StatusDone
	}, 15*time.Second, 100*time.Millisecond, "ticket never reached done")

	tk, err := svc.GetTicketData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2+2?", tk.Question)
	require.NotNil(t, tk.Answer)
	assert.NotEmpty(t, *tk.Answer)
}

func TestRedisBroker_OrderWithinConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := streamKey(t)
	producer := broker.NewRedisProducer(rdb, key)
	require.NoError(t, producer.Publish(ctx, "ticket.created", map[string]any{"ticket_id": "a"}))
	require.NoError(t, producer.Publish(ctx, "ticket.created", map[string]any{"ticket_id": "b"}))

	consumer := broker.NewRedisConsumer(rdb, key, "g1", "c1")
	ch, err := consumer.Subscribe(ctx, "ticket.created")
	require.NoError(t, err)

	var got []string
	for len(got) < 2 {
		select {
		case d := <-ch:
			got = append(got, d.Payload["ticket_id"].(string))
			require.NoError(t, d.Ack(ctx))
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out after %d deliveries", len(got))
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRedisBroker_GroupStartsAtBeginning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := streamKey(t)
	producer := broker.NewRedisProducer(rdb, key)
	// Published before the group exists.
	require.NoError(t, producer.Publish(ctx, "ticket.created", map[string]any{"ticket_id": "early"}))

	ch, err := broker.NewRedisConsumer(rdb, key, "g1", "c1").Subscribe(ctx, "ticket.created")
	require.NoError(t, err)

	select {
	case d := <-ch:
		assert.Equal(t, "early", d.Payload["ticket_id"])
		require.NoError(t, d.Ack(ctx))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for pre-group record")
	}
}

func TestRedisBroker_PoisonRecordAckedAndDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := streamKey(t)
	// Malformed body written directly to the stream.
	require.NoError(t, rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{"topic": "ticket.created", "data": "{not json", "timestamp": 0},
	}).Err())

	producer := broker.NewRedisProducer(rdb, key)
	require.NoError(t, producer.Publish(ctx, "ticket.created", map[string]any{"ticket_id": "good"}))

	ch, err := broker.NewRedisConsumer(rdb, key, "g1", "c1").Subscribe(ctx, "ticket.created")
	require.NoError(t, err)

	select {
	case d := <-ch:
		assert.Equal(t, "good", d.Payload["ticket_id"])
		require.NoError(t, d.Ack(ctx))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting past the poison record")
	}

	// The poison record must not linger in the pending entries list.
	assert.Eventually(t, func() bool {
		pending, err := rdb.XPending(context.Background(), key, "g1").Result()
		return err == nil && pending.Count == 0
	}, 10*time.Second, 100*time.Millisecond)
}

func TestRedisTicketRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRedisTicketRepo(rdb)

	in := ticket.New(uuid.NewString(), "2+2?")
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = repo.Get(ctx, "nonexistent-id")
	assert.ErrorIs(t, err, ticket.ErrNotFound)
}
