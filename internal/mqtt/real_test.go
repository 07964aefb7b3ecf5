package mqtt

import (
	"encoding/json"
	"io"
	"sync"
	"log/slog"
	"net"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/smoker-controller/internal/logic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startBroker spins up an in-process MQTT broker on addr.
func startBroker(t *testing.T, addr string) *mochi.Server {
	t.Helper()
	broker := mochi.New(&mochi.Options{Logger: discardLogger()})
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "test",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { broker.Close() })
	return broker
}

func subscribe(t *testing.T, addr, topic string) <-chan paho.Message {
	t.Helper()
	msgs := make(chan paho.Message, 16)

	c := paho.NewClient(paho.NewClientOptions().
		AddBroker("tcp://" + addr).
		SetClientID("test-subscriber"))
	token := c.Connect()
	require.True(t, token.WaitTimeout(5*time.Second), "subscriber connect timeout")
	require.NoError(t, token.Error())

	token = c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) { msgs <- m })
	require.True(t, token.WaitTimeout(5*time.Second), "subscribe timeout")
	require.NoError(t, token.Error())

	t.Cleanup(func() { c.Disconnect(100) })
	return msgs
}

func receive(t *testing.T, msgs <-chan paho.Message) paho.Message {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRealPublisherRequiresBroker(t *testing.T) {
	_, err := NewRealPublisher(Options{Logger: discardLogger()})
	assert.Error(t, err)
}

func TestRealPublisherPublishes(t *testing.T) {
	addr := freeAddr(t)
	startBroker(t, addr)
	msgs := subscribe(t, addr, "smoker/controller/#")

	p, err := NewRealPublisher(Options{
		Broker:     "tcp://" + addr,
		ClientID:   "smoker-test",
		BufferSize: 10,
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	defer p.Close()

	require.Eventually(t, p.IsConnected, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Publish(runningEvent()))
	m := receive(t, msgs)
	assert.Equal(t, Topic, m.Topic())

	var parsed Payload
	require.NoError(t, json.Unmarshal(m.Payload(), &parsed))
	assert.Equal(t, string(logic.EventHeaterOn), parsed.Smoker.Event)

	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"}))
	m = receive(t, msgs)
	assert.Equal(t, TopicSystem, m.Topic())
	assert.Contains(t, string(m.Payload()), `"event":"HEARTBEAT"`)
}

func TestRealPublisherBuffersUntilConnected(t *testing.T) {
	addr := freeAddr(t)

	p, err := NewRealPublisher(Options{
		Broker:         "tcp://" + addr,
		ClientID:       "smoker-test",
		BufferSize:     10,
		ConnectTimeout: 100 * time.Millisecond,
		Logger:         discardLogger(),
	})
	require.NoError(t, err, "an unreachable broker must not fail construction")
	defer p.Close()

	assert.False(t, p.IsConnected())
	require.NoError(t, p.PublishSystem(SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
	}))
	assert.Equal(t, 1, p.Buffered())

	startBroker(t, addr)
	require.Eventually(t, p.IsConnected, 15*time.Second, 50*time.Millisecond)
	require.Eventually(t, func() bool { return p.Buffered() == 0 }, 5*time.Second, 10*time.Millisecond)

	// The replayed message was retained, so a late subscriber still sees it.
	msgs := subscribe(t, addr, TopicSystem)
	m := receive(t, msgs)
	assert.Contains(t, string(m.Payload()), `"event":"STARTUP"`)
}

// silentBroker accepts MQTT connections, answers CONNECT with a successful
// CONNACK and then reads and discards everything, never acknowledging.
func silentBroker(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
		wg.Wait()
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Write([]byte{0x20, 0x02, 0x00, 0x00})
				io.Copy(io.Discard, c)
			}()
		}
	}()
	return l.Addr().String()
}

func TestRealPublisherNeverBlocksOnSilentBroker(t *testing.T) {
	addr := silentBroker(t)

	p, err := NewRealPublisher(Options{
		Broker:     "tcp://" + addr,
		ClientID:   "smoker-test",
		BufferSize: 10,
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	require.Eventually(t, p.IsConnected, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT", Retained: true}))
		require.NoError(t, p.Publish(runningEvent()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "publishing must not wait for the broker")
	assert.LessOrEqual(t, p.Buffered(), 10, "queue stays bounded")

	start = time.Now()
	require.NoError(t, p.Close())
	assert.Less(t, time.Since(start), closeTimeout+2*time.Second, "close is bounded")
}
