package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockPublisherRecordsInOrder(t *testing.T) {
	pub := NewMockPublisher()
	require.NoError(t, pub.Publish("parking/lot-1/sensor/s-1", []byte("a")))
	require.NoError(t, pub.Publish("parking/lot-1/sensor/s-1", []byte("b")))
	require.NoError(t, pub.Publish("parking/lot-2/sensor/s-9", []byte("c")))

	msgs := pub.Published("parking/lot-1/sensor/s-1")
	require.Len(t, msgs, 2)
	require.Equal(t, "a", string(msgs[0]))
	require.Equal(t, "b", string(msgs[1]))
	require.Len(t, pub.Published("parking/lot-2/sensor/s-9"), 1)
	require.Empty(t, pub.Published("parking/lot-3/sensor/s-1"))
}

func TestMockPublisherFail(t *testing.T) {
	pub := NewMockPublisher()
	pub.Fail = true
	require.Error(t, pub.Publish("parking/lot-1/sensor/s-1", []byte("a")))
	require.Empty(t, pub.Published("parking/lot-1/sensor/s-1"))
}
