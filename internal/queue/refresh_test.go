package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/ingest"
	"photogallery/internal/logging"
)

type fakeChannel struct {
	mu         sync.Mutex
	published  []amqp.Publishing
	declared   []string
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, "exchange:"+name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, "queue:"+name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, "bind:"+name+"->"+exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

func (f *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

type ackRecorder struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func (a *ackRecorder) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks, a.nacks
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RefreshByID(ctx context.Context, id int64) (*gallery.Section, ingest.MergeResult, error) {
	args := m.Called(ctx, id)
	return nil, args.Get(0).(ingest.MergeResult), args.Error(1)
}

func delivery(ack amqp.Acknowledger, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestDeclareAndPublish(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, Declare(ch))
	assert.Equal(t, []string{
		"exchange:" + RefreshExchange,
		"queue:" + RefreshQueue,
		"bind:" + RefreshQueue + "->" + RefreshExchange + "/" + RefreshRoutingKey,
	}, ch.declared)

	require.NoError(t, NewPublisher(ch).PublishRefresh(context.Background(), 12, 3))
	require.Len(t, ch.published, 1)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var msg RefreshMessage
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
	assert.Equal(t, int64(12), msg.SectionID)
	assert.Equal(t, int64(3), msg.RequestedBy)
}

func TestConsumer_Handle(t *testing.T) {
	runner := new(mockRunner)
	runner.On("RefreshByID", mock.Anything, int64(1)).Return(ingest.MergeResult{Fetched: 2, Inserted: 1}, nil)
	runner.On("RefreshByID", mock.Anything, int64(2)).Return(ingest.MergeResult{}, ingest.ErrSectionBusy)
	runner.On("RefreshByID", mock.Anything, int64(3)).Return(ingest.MergeResult{}, context.Canceled)
	runner.On("RefreshByID", mock.Anything, int64(4)).Return(ingest.MergeResult{}, errors.New("provider down"))

	c := NewConsumer(&fakeChannel{}, runner, logging.Discard())
	ctx := context.Background()

	for _, id := range []int64{1, 2, 4} {
		ack := &ackRecorder{}
		body, _ := json.Marshal(RefreshMessage{SectionID: id})
		c.Handle(ctx, delivery(ack, body))
		acks, nacks := ack.counts()
		assert.Equal(t, 1, acks, "section %d", id)
		assert.Zero(t, nacks, "section %d", id)
	}

	ack := &ackRecorder{}
	body, _ := json.Marshal(RefreshMessage{SectionID: 3})
	c.Handle(ctx, delivery(ack, body))
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)

	ack = &ackRecorder{}
	c.Handle(ctx, delivery(ack, []byte("not json")))
	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)

	runner.AssertExpectations(t)
}

func TestConsumer_StartProcessesUntilCancel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 1)}
	runner := new(mockRunner)
	runner.On("RefreshByID", mock.Anything, int64(5)).Return(ingest.MergeResult{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewConsumer(ch, runner, logging.Discard()).Start(ctx))

	ack := &ackRecorder{}
	body, _ := json.Marshal(RefreshMessage{SectionID: 5})
	ch.deliveries <- delivery(ack, body)

	require.Eventually(t, func() bool {
		acks, _ := ack.counts()
		return acks == 1
	}, 2*time.Second, 10*time.Millisecond)
}
