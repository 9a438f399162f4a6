package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservableDeliversToSubscriber(t *testing.T) {
	obs := New[int](1)
	sub := obs.Subscribe()
	defer sub.Cancel()
	go obs.Publish(1)
	v := <-sub.Channel()
	assert.Equal(t, 1, v)
}

func TestObservableBufferedDelivery(t *testing.T) {
	obs := New[int](2)
	sub := obs.Subscribe()
	defer sub.Cancel()
	obs.Publish(1)
	obs.Publish(2)
	assert.Equal(t, 1, <-sub.Channel())
	assert.Equal(t, 2, <-sub.Channel())
}

func TestObservableMultipleSubscribers(t *testing.T) {
	obs := New[int](2)
	sub1 := obs.Subscribe()
	defer sub1.Cancel()
	sub2 := obs.Subscribe()
	defer sub2.Cancel()
	obs.Publish(7)
	assert.Equal(t, 7, <-sub1.Channel())
	assert.Equal(t, 7, <-sub2.Channel())
}

func TestObservableCanceledSubscriberIsSkipped(t *testing.T) {
	obs := New[int](2)
	sub1 := obs.Subscribe()
	sub2 := obs.Subscribe()
	sub1.Cancel()
	obs.Publish(1)
	assert.Equal(t, 1, <-sub2.Channel())

	v, open := <-sub1.Channel()
	assert.Equal(t, 0, v)
	assert.False(t, open)
	sub2.Cancel()
}
