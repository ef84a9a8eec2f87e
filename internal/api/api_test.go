package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wagerlobby/internal/api/apierr"
	"github.com/mcoot/wagerlobby/internal/api/handler"
	"github.com/mcoot/wagerlobby/internal/api/response"
	"github.com/mcoot/wagerlobby/internal/factory"
	"github.com/mcoot/wagerlobby/internal/model"
	"github.com/mcoot/wagerlobby/internal/realtime"
	"github.com/mcoot/wagerlobby/internal/services/auth"
)

// testServer wraps a started test app and its HTTP handler
type testServer struct {
	app     *factory.TestApp
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	app.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})

	return &testServer{
		app:     app,
		handler: app.Handler(),
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) envelope(chatID int64, name string) map[string]any {
	env := auth.Envelope{
		ChatID:      chatID,
		DisplayName: name,
		SignedAt:    ts.app.MockClock.Now(),
	}
	return map[string]any{
		"chat_id":      env.ChatID,
		"display_name": env.DisplayName,
		"signed_at":    env.SignedAt.Unix(),
		"signature":    auth.SignEnvelope(factory.TestPlatformSecret, env),
	}
}

// bootstrap creates a player with the given balance and returns its token and id
func bootstrap(t *testing.T, ts *testServer, chatID int64, name string, balance int64) (string, model.PlayerID) {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/session", ts.envelope(chatID, name), "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	playerID := model.PlayerID(resp.Player.ID)
	if balance > 0 {
		_, err := ts.app.Memory.Credit(context.Background(), playerID, balance)
		require.NoError(t, err)
	}
	return resp.SessionToken, playerID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestSessionBootstrap(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/session", ts.envelope(42, "Alice"), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Alice", resp.Player.DisplayName)
	assert.True(t, resp.Created)
	assert.NotEmpty(t, resp.SessionToken)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "session", cookies[0].Name)

	// Second bootstrap of the same chat id refreshes rather than creates
	rr = ts.request(http.MethodPost, "/api/v1/session", ts.envelope(42, "Alice Again"), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var again response.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &again))
	assert.False(t, again.Created)
	assert.Equal(t, resp.Player.ID, again.Player.ID)
	assert.Equal(t, "Alice Again", again.Player.DisplayName)
}

func TestSessionBootstrapRejections(t *testing.T) {
	ts := newTestServer(t)

	t.Run("bad signature", func(t *testing.T) {
		body := ts.envelope(42, "Alice")
		body["display_name"] = "Mallory"
		rr := ts.request(http.MethodPost, "/api/v1/session", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Code)
	})

	t.Run("stale envelope", func(t *testing.T) {
		body := ts.envelope(42, "Alice")
		ts.app.MockClock.Advance(25 * time.Hour)
		defer ts.app.MockClock.Advance(-25 * time.Hour)
		rr := ts.request(http.MethodPost, "/api/v1/session", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing display name", func(t *testing.T) {
		body := ts.envelope(42, "Alice")
		delete(body, "display_name")
		rr := ts.request(http.MethodPost, "/api/v1/session", body, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/session", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSessionBootstrapWithBypassMarker(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"chat_id":      7,
		"display_name": "Bob",
		"signed_at":    ts.app.MockClock.Now().Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewReader(body))
	req.Header.Set(handler.BypassMarkerHeader, factory.TestBypassMarker)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token, playerID := bootstrap(t, ts, 1, "Bob", 750)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var me response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, string(playerID), me.ID)
	assert.Equal(t, "Bob", me.DisplayName)
	assert.Equal(t, int64(750), me.Balance)
}

func TestTokenFromQueryAndCookie(t *testing.T) {
	ts := newTestServer(t)
	token, _ := bootstrap(t, ts, 1, "Bob", 0)

	rr := ts.request(http.MethodGet, "/api/v1/players/me?token="+token, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/players/me", "/api/v1/players/me/seat", "/api/v1/players/me/rewards"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "low", "bet": 100}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListAndDescribeRooms(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var rooms response.RoomsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rooms))
	require.Len(t, rooms.Rooms, 3)

	low := rooms.Rooms[0]
	assert.Equal(t, "low", low.Tier)
	assert.Equal(t, "open", low.Status)
	assert.Equal(t, 0, low.SeatsCount)
	assert.Equal(t, 2, low.Capacity)
	assert.Equal(t, int64(1), low.RoundSeq)
	assert.Equal(t, int64(100), low.TierParams.MinBet)
	assert.Equal(t, int64(450), low.TierParams.MaxBet)
	assert.Equal(t, "low", low.TierParams.Name)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/"+low.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var room response.Room
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &room))
	assert.Equal(t, low.ID, room.ID)
	assert.Empty(t, room.Seats)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/no-such-room", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, decodeError(t, rr).Code)
}

func TestJoinAndSeat(t *testing.T) {
	ts := newTestServer(t)
	token, playerID := bootstrap(t, ts, 1, "Alice", 1000)

	rr := ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "low", "bet": 200}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var joined response.JoinResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &joined))
	assert.Equal(t, "low", joined.Tier)
	assert.Equal(t, 1, joined.Position)
	assert.Equal(t, 1, joined.SeatsRemaining)

	rr = ts.request(http.MethodGet, "/api/v1/players/me/seat", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var seat response.SeatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &seat))
	require.True(t, seat.Seated)
	assert.Equal(t, joined.RoomID, seat.Room.ID)
	assert.Equal(t, string(playerID), seat.Room.Seats[0].PlayerID)
	assert.Equal(t, int64(200), seat.Room.Pot)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	var me response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, int64(800), me.Balance)
}

func TestJoinErrors(t *testing.T) {
	ts := newTestServer(t)
	token, _ := bootstrap(t, ts, 1, "Alice", 1000)
	poorToken, _ := bootstrap(t, ts, 2, "Poor", 50)

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
		code   string
	}{
		{"bet above max", token, map[string]any{"tier": "low", "bet": 451}, http.StatusBadRequest, apierr.CodeBetOutOfRange},
		{"bet below min", token, map[string]any{"tier": "low", "bet": 99}, http.StatusBadRequest, apierr.CodeBetOutOfRange},
		{"zero bet", token, map[string]any{"tier": "low", "bet": 0}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"missing tier", token, map[string]any{"bet": 100}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"unknown tier", token, map[string]any{"tier": "vip", "bet": 100}, http.StatusNotFound, apierr.CodeTierUnknown},
		{"someone else's id", token, map[string]any{"tier": "low", "bet": 100, "player_id": "other"}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"insufficient funds", poorToken, map[string]any{"tier": "low", "bet": 100}, http.StatusPaymentRequired, apierr.CodeInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/join", tt.body, tt.token)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}

	// Already seated
	rr := ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "low", "bet": 100}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "mid", "bet": 500}, token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadySeated, decodeError(t, rr).Code)
}

func TestRoundHistoryAndRewards(t *testing.T) {
	ts := newTestServer(t)
	aliceToken, alice := bootstrap(t, ts, 1, "Alice", 1000)
	bobToken, _ := bootstrap(t, ts, 2, "Bob", 1000)
	ts.app.MockRandom.QueueInt64n(0) // first seat wins

	rr := ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "low", "bet": 100}, aliceToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/join", map[string]any{"tier": "low", "bet": 100}, bobToken)
	require.Equal(t, http.StatusCreated, rr.Code)

	var rounds response.RoundsResponse
	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/history/rounds?limit=5", nil, "")
		if rr.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(rr.Body.Bytes(), &rounds)
		return len(rounds.Rounds) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, string(alice), rounds.Rounds[0].Winner.PlayerID)
	assert.Equal(t, int64(200), rounds.Rounds[0].Pot)
	assert.Len(t, rounds.Rounds[0].Seats, 2)

	var rewards response.RewardsResponse
	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/players/me/rewards", nil, aliceToken)
		_ = json.Unmarshal(rr.Body.Bytes(), &rewards)
		return len(rewards.Rewards) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "reward:low", rewards.Rewards[0].RewardHandle)

	rr = ts.request(http.MethodGet, "/api/v1/players/me/rewards", nil, bobToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var bobRewards response.RewardsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bobRewards))
	assert.Empty(t, bobRewards.Rewards)

	rr = ts.request(http.MethodGet, "/api/v1/history/rounds?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/history/rounds?limit=1000", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventStreams(t *testing.T) {
	ts := newTestServer(t)
	token, _ := bootstrap(t, ts, 1, "Alice", 0)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	t.Run("server-sent events", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?token="+token, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var events []string
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() && len(events) < 2 {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events = append(events, name)
			}
		}
		assert.Equal(t, []string{"connected", string(model.EventRoomsUpdated)}, events)
	})

	t.Run("websocket", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var evt realtime.WireEvent
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, model.EventRoomsUpdated, evt.Type)
	})

	t.Run("websocket requires auth", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
