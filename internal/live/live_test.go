package live

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/housepoints/internal/actorctx"
	"github.com/geocoder89/housepoints/internal/board"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	total float64
}

func (f *fakeSource) set(total float64) {
	f.mu.Lock()
	f.total = total
	f.mu.Unlock()
}

func (f *fakeSource) Standings(_ context.Context, viewer *user.User) (board.Standings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	canEdit := viewer != nil && viewer.Role == user.RoleAdmin
	return board.Standings{Entries: []board.Entry{
		{Rank: 1, Page: page.Page{Index: 0, Title: "Canonicus"}, TotalPoints: f.total, CanEdit: canEdit, Podium: true},
	}}, nil
}

func newTestServer(t *testing.T, hub *Hub, viewer *user.User) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if viewer != nil {
			c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), viewer))
		}
		hub.ServeWS(c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHub_SnapshotThenRefresh(t *testing.T) {
	src := &fakeSource{total: 1}
	hub := NewHub(src, nil, nil, nil)
	admin := &user.User{ID: "a", Role: user.RoleAdmin}
	srv := newTestServer(t, hub, admin)

	conn := dial(t, srv, nil)

	first := readMessage(t, conn)
	assert.Equal(t, MessageStandings, first.Type)
	require.Len(t, first.Standings.Entries, 1)
	assert.Equal(t, 1.0, first.Standings.Entries[0].TotalPoints)
	assert.True(t, first.Standings.Entries[0].CanEdit)
	assert.Nil(t, first.Change)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	src.set(7)
	change := &board.Change{Op: board.OpAdd, PageIndex: 0, ItemID: "i1"}
	require.NoError(t, hub.Refresh(context.Background(), change))

	second := readMessage(t, conn)
	assert.Equal(t, 7.0, second.Standings.Entries[0].TotalPoints)
	// canEdit is recomputed per viewer, not taken from the anonymous base
	assert.True(t, second.Standings.Entries[0].CanEdit)
	require.NotNil(t, second.Change)
	assert.Equal(t, "i1", second.Change.ItemID)
}

func TestHub_PublishCoalescesThroughRun(t *testing.T) {
	src := &fakeSource{total: 0}
	hub := NewHub(src, nil, nil, nil)
	srv := newTestServer(t, hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, srv, nil)
	_ = readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	src.set(3)
	require.NoError(t, hub.Publish(ctx, board.Change{Op: board.OpUpdate}))

	m := readMessage(t, conn)
	assert.Equal(t, 3.0, m.Standings.Entries[0].TotalPoints)
	assert.False(t, m.Standings.Entries[0].CanEdit)
}

// slowFirstRead holds the first Standings call until release is closed.
type slowFirstRead struct {
	*fakeSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowFirstRead) Standings(ctx context.Context, viewer *user.User) (board.Standings, error) {
	first := false
	s.once.Do(func() { first = true })

	if first {
		// read before waiting, like a query that returns rows and then stalls on the wire
		st, err := s.fakeSource.Standings(ctx, viewer)
		close(s.entered)
		<-s.release
		return st, err
	}

	return s.fakeSource.Standings(ctx, viewer)
}

func TestHub_ChangeDuringConnectSnapshotWins(t *testing.T) {
	src := &slowFirstRead{
		fakeSource: &fakeSource{total: 1},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	hub := NewHub(src, nil, nil, nil)
	srv := newTestServer(t, hub, nil)

	conn := dial(t, srv, nil)

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("connect snapshot never started")
	}

	// the viewer is already registered while its first snapshot is in flight
	assert.Equal(t, 1, hub.ClientCount())

	src.set(7)
	require.NoError(t, hub.Refresh(context.Background(), &board.Change{Op: board.OpAdd, PageIndex: 0}))
	close(src.release)

	m := readMessage(t, conn)
	assert.Equal(t, 7.0, m.Standings.Entries[0].TotalPoints)

	// the stale connect snapshot is never sent after the newer one
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "got %v", err)
}

func TestHub_RefreshKeepsGoingAfterEncodeFailure(t *testing.T) {
	src := &fakeSource{total: 1}
	hub := NewHub(src, nil, nil, nil)
	srv := newTestServer(t, hub, nil)

	first := dial(t, srv, nil)
	second := dial(t, srv, nil)
	_ = readMessage(t, first)
	_ = readMessage(t, second)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	// NaN cannot be encoded as JSON
	src.set(math.NaN())
	err := hub.Refresh(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2")
	assert.Equal(t, 2, hub.ClientCount(), "encode failures do not drop viewers")

	src.set(4)
	require.NoError(t, hub.Refresh(context.Background(), nil))
	assert.Equal(t, 4.0, readMessage(t, first).Standings.Entries[0].TotalPoints)
	assert.Equal(t, 4.0, readMessage(t, second).Standings.Entries[0].TotalPoints)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(&fakeSource{}, nil, nil, []string{"https://board.example"})
	srv := newTestServer(t, hub, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": []string{"https://board.example"}})
	_ = readMessage(t, conn)
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub := NewHub(&fakeSource{}, nil, nil, nil)
	srv := newTestServer(t, hub, nil)

	conn := dial(t, srv, nil)
	_ = readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestDecodeChange(t *testing.T) {
	c, err := decodeChange(`{"op":"delete","pageIndex":4,"itemId":"x","actorId":"u"}`)
	require.NoError(t, err)
	assert.Equal(t, board.OpDelete, c.Op)
	assert.Equal(t, 4, c.PageIndex)

	_, err = decodeChange(`{"pageIndex":1}`)
	assert.Error(t, err)

	_, err = decodeChange(`not json`)
	assert.Error(t, err)
}

func TestExponentialBackoff(t *testing.T) {
	assert.GreaterOrEqual(t, ExponentialBackoff(0), 500*time.Millisecond)
	assert.Less(t, ExponentialBackoff(0), 750*time.Millisecond)
	assert.GreaterOrEqual(t, ExponentialBackoff(3), 4*time.Second)
	assert.GreaterOrEqual(t, ExponentialBackoff(100), 30*time.Second)
	assert.Less(t, ExponentialBackoff(100), 31*time.Second)
}
