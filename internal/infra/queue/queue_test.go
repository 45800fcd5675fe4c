package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

type fakeAcker struct {
	acked, nacked, requeued bool
}

func (a *fakeAcker) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAcker) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

type MockHandler struct{ mock.Mock }

func (m *MockHandler) NotifyLeadCaptured(ctx context.Context, event entity.LeadCapturedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fakeConsumer struct{ ch chan amqp.Delivery }

func (f *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, nil
}

type fakeDeclarer struct{ calls []string }

func (f *fakeDeclarer) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.calls = append(f.calls, "exchange:"+name)
	return nil
}
func (f *fakeDeclarer) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.calls = append(f.calls, "queue:"+name)
	return amqp.Queue{Name: name}, nil
}
func (f *fakeDeclarer) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.calls = append(f.calls, "bind:"+name+"->"+exchange)
	return nil
}

func TestSetupTopology(t *testing.T) {
	d := &fakeDeclarer{}
	require.NoError(t, setupTopology(d))

	assert.Equal(t, []string{
		"exchange:" + DLXName,
		"queue:" + DLQName,
		"bind:" + DLQName + "->" + DLXName,
		"exchange:" + ExchangeName,
		"queue:" + QueueName,
		"bind:" + QueueName + "->" + ExchangeName,
	}, d.calls)
}

func TestPublishLeadCaptured(t *testing.T) {
	pub := &fakePublisher{}
	p := &Producer{Ch: pub}

	event := entity.LeadCapturedEvent{LeadID: "lead-1", Channel: entity.ChannelEmail, Created: true, Score: 4}
	require.NoError(t, p.NotifyLeadCaptured(context.Background(), event))

	assert.Equal(t, ExchangeName, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, "lead-1", pub.msg.MessageId)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var decoded entity.LeadCapturedEvent
	require.NoError(t, json.Unmarshal(pub.msg.Body, &decoded))
	assert.Equal(t, event.LeadID, decoded.LeadID)
	assert.Equal(t, 4, decoded.Score)
}

func TestPublishLeadCaptured_BrokerError(t *testing.T) {
	p := &Producer{Ch: &fakePublisher{err: errors.New("channel closed")}}
	err := p.PublishLeadCaptured(context.Background(), entity.LeadCapturedEvent{LeadID: "x"})
	require.Error(t, err)
}

func TestWorker_AcksHandledEvent(t *testing.T) {
	handler := new(MockHandler)
	handler.On("NotifyLeadCaptured", mock.Anything, mock.MatchedBy(func(e entity.LeadCapturedEvent) bool {
		return e.LeadID == "lead-1"
	})).Return(nil)

	w := &Worker{Handler: handler}
	acker := &fakeAcker{}
	w.handle(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte(`{"lead_id":"lead-1","channel":"webform"}`)})

	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	handler.AssertExpectations(t)
}

func TestWorker_RejectsFailures(t *testing.T) {
	handler := new(MockHandler)
	handler.On("NotifyLeadCaptured", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	w := &Worker{Handler: handler}

	failed := &fakeAcker{}
	w.handle(context.Background(), amqp.Delivery{Acknowledger: failed, Body: []byte(`{"lead_id":"lead-1"}`)})
	assert.True(t, failed.nacked)
	assert.False(t, failed.requeued)

	malformed := &fakeAcker{}
	w.handle(context.Background(), amqp.Delivery{Acknowledger: malformed, Body: []byte(`not json`)})
	assert.True(t, malformed.nacked)
	handler.AssertNumberOfCalls(t, "NotifyLeadCaptured", 1)
}

func TestWorker_StartStopsOnCancel(t *testing.T) {
	called := make(chan struct{})
	handler := new(MockHandler)
	handler.On("NotifyLeadCaptured", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(called) }).
		Return(nil)

	deliveries := make(chan amqp.Delivery, 1)
	acker := &fakeAcker{}
	deliveries <- amqp.Delivery{Acknowledger: acker, Body: []byte(`{"lead_id":"lead-1"}`)}

	w := &Worker{Channel: &fakeConsumer{ch: deliveries}, Handler: handler}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, QueueName) }()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("event not handled")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_StartReportsClosedChannel(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	w := &Worker{Channel: &fakeConsumer{ch: deliveries}, Handler: new(MockHandler)}
	err := w.Start(context.Background(), QueueName)
	require.Error(t, err)
}
