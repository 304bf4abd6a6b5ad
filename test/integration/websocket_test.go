// Package integration contains end-to-end tests for the tracker: real HTTP
// servers, real WebSocket sessions, and the full broadcast pipeline.
package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manishkarki1/realtime-tracker/test/testhelpers"
)

const eventTimeout = 2 * time.Second

// TestLocationBroadcastScenario walks the canonical two-peer session:
// A and B join, exchange locations, A leaves, and the listing reflects it.
func TestLocationBroadcastScenario(t *testing.T) {
	ts, _ := testhelpers.StartTracker(t, nil)

	connA := testhelpers.DialWS(t, ts)
	connB := testhelpers.DialWS(t, ts)

	testhelpers.SendLocation(t, connA, 10, 20)

	ev := testhelpers.ReadEvent(t, connB, eventTimeout)
	require.Equal(t, "receive-location", ev.Type)
	require.NotEmpty(t, ev.ID)
	assert.Equal(t, 10.0, ev.Latitude)
	assert.Equal(t, 20.0, ev.Longitude)
	idA := ev.ID

	testhelpers.SendLocation(t, connB, 30, 40)

	ev = testhelpers.ReadEvent(t, connA, eventTimeout)
	require.Equal(t, "receive-location", ev.Type)
	assert.NotEqual(t, idA, ev.ID)
	assert.Equal(t, 30.0, ev.Latitude)
	assert.Equal(t, 40.0, ev.Longitude)

	require.NoError(t, connA.Close())

	ev = testhelpers.ReadEvent(t, connB, eventTimeout)
	require.Equal(t, "user-disconnected", ev.Type)
	assert.Equal(t, idA, ev.ID)

	require.Eventually(t, func() bool {
		users := testhelpers.FetchUsers(t, ts)
		return len(users) == 1 && users[0].Latitude == 30 && users[0].Longitude == 40
	}, eventTimeout, 25*time.Millisecond, "listing should only contain B after A leaves")
}

// TestJoinSnapshot verifies that a late joiner receives the existing peers'
// locations before any live traffic.
func TestJoinSnapshot(t *testing.T) {
	ts, hub := testhelpers.StartTracker(t, nil)

	connA := testhelpers.DialWS(t, ts)
	testhelpers.SendLocation(t, connA, 5, 6)

	require.Eventually(t, func() bool {
		return len(hub.Snapshot()) == 1
	}, eventTimeout, 10*time.Millisecond)

	connB := testhelpers.DialWS(t, ts)

	ev := testhelpers.ReadEvent(t, connB, eventTimeout)
	assert.Equal(t, "receive-location", ev.Type)
	assert.Equal(t, 5.0, ev.Latitude)
	assert.Equal(t, 6.0, ev.Longitude)
}

// TestInvalidUpdatesProduceNothing sends malformed frames and verifies the
// connection survives and the next valid frame is the first thing peers see.
func TestInvalidUpdatesProduceNothing(t *testing.T) {
	ts, hub := testhelpers.StartTracker(t, nil)

	connA := testhelpers.DialWS(t, ts)
	connB := testhelpers.DialWS(t, ts)

	testhelpers.SendRaw(t, connA, `{"type":"send-location","latitude":200,"longitude":20}`)
	testhelpers.SendRaw(t, connA, `{"latitude":10,"longitude":20}`)
	testhelpers.SendRaw(t, connA, `garbage`)
	testhelpers.SendLocation(t, connA, 10, 20)

	ev := testhelpers.ReadEvent(t, connB, eventTimeout)
	require.Equal(t, "receive-location", ev.Type,
		"the valid frame must be the first and only broadcast")
	assert.Equal(t, 10.0, ev.Latitude)
	assert.Equal(t, 20.0, ev.Longitude)

	require.Eventually(t, func() bool {
		return len(hub.Snapshot()) == 1
	}, eventTimeout, 10*time.Millisecond)
	assert.Equal(t, 2, hub.ClientCount(), "malformed frames must not kill the connection")
}

// TestSenderDoesNotReceiveEcho checks the fan-out exclusion of the sender.
func TestSenderDoesNotReceiveEcho(t *testing.T) {
	ts, _ := testhelpers.StartTracker(t, nil)

	connA := testhelpers.DialWS(t, ts)
	connB := testhelpers.DialWS(t, ts)

	testhelpers.SendLocation(t, connA, 10, 20)

	// B receiving the event proves the update was processed.
	ev := testhelpers.ReadEvent(t, connB, eventTimeout)
	require.Equal(t, "receive-location", ev.Type)

	testhelpers.ExpectNoMessage(t, connA, 300*time.Millisecond)
}

// TestUsersListing exercises GET /users against the live store.
func TestUsersListing(t *testing.T) {
	ts, _ := testhelpers.StartTracker(t, nil)

	assert.Empty(t, testhelpers.FetchUsers(t, ts), "no connections means an empty listing")

	connA := testhelpers.DialWS(t, ts)
	connB := testhelpers.DialWS(t, ts)

	testhelpers.SendLocation(t, connA, 1, 2)
	require.Eventually(t, func() bool {
		return len(testhelpers.FetchUsers(t, ts)) == 1
	}, eventTimeout, 25*time.Millisecond)

	testhelpers.SendLocation(t, connB, 3, 4)
	require.Eventually(t, func() bool {
		return len(testhelpers.FetchUsers(t, ts)) == 2
	}, eventTimeout, 25*time.Millisecond)

	users := testhelpers.FetchUsers(t, ts)
	require.Len(t, users, 2)
	assert.Equal(t, 1.0, users[0].Latitude)
	assert.Equal(t, 3.0, users[1].Latitude)
	assert.NotEqual(t, users[0].ID, users[1].ID)
}

// TestOriginRejected verifies the WebSocket upgrade is refused for
// disallowed origins.
func TestOriginRejected(t *testing.T) {
	ts, _ := testhelpers.StartTracker(t, nil)

	wsURL := "ws" + ts.URL[len("http"):] + "/ws"
	header := map[string][]string{"Origin": {"https://evil.example"}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	if resp != nil {
		assert.Equal(t, 403, resp.StatusCode)
		_ = resp.Body.Close()
	}
}
