package mqtt

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatTopics(t *testing.T) {
	assert.Equal(t, "signage/FTI-SIGNAGE-01/heartbeat", HeartbeatTopic("FTI-SIGNAGE-01"))

	host, ok := HostnameFromTopic("signage/FTI-SIGNAGE-01/heartbeat")
	require.True(t, ok)
	assert.Equal(t, "FTI-SIGNAGE-01", host)

	for _, bad := range []string{"signage//heartbeat", "signage/a/b/heartbeat", "tv/x/commands", "signage/x"} {
		_, ok := HostnameFromTopic(bad)
		assert.False(t, ok, bad)
	}
}

func TestPublishSubscribe(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER_URL")
	if broker == "" {
		t.Skip("MQTT_BROKER_URL not set, skipping broker test")
	}
	c, err := Connect(broker, "signage-test")
	if err != nil {
		t.Skipf("MQTT broker not available, skipping test: %v", err)
	}
	defer c.Close()

	got := make(chan []byte, 1)
	require.NoError(t, c.Subscribe(HeartbeatTopic("TEST-UNIT"), func(_ string, payload []byte) {
		got <- payload
	}))

	pl := "pl-1"
	require.NoError(t, c.PublishHeartbeat("TEST-UNIT", HeartbeatMessage{CurrentPlaylistID: &pl, SentAt: time.Now()}))

	select {
	case payload := <-got:
		var msg HeartbeatMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		require.NotNil(t, msg.CurrentPlaylistID)
		assert.Equal(t, "pl-1", *msg.CurrentPlaylistID)
	case <-time.After(5 * time.Second):
		t.Fatal("heartbeat not received")
	}
}
