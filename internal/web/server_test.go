package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/cover/driver/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func (c *stepClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestServer(t *testing.T) (*httptest.Server, *relay.RelaysCover) {
	t.Helper()

	clock := &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := relay.NewRelaysCover("kitchen", &relay.Dumb{Name: "up"}, &relay.Dumb{Name: "down"},
		relay.Config{FullTravel: 5 * time.Second, InitialPosition: 50}, clock)
	require.NoError(t, err)

	srv := httptest.NewServer(New(":0", []cover.Cover{c}).Handler())
	t.Cleanup(srv.Close)

	return srv, c
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestListCovers(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/covers")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []coverJSON
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "kitchen", list[0].Name)
	require.NotNil(t, list[0].Position)
	assert.Equal(t, 29, *list[0].Position)
	assert.Equal(t, "idle", list[0].Operation)
}

func TestGetCover(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("known cover", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/covers/kitchen")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	})

	t.Run("unknown cover", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/covers/attic")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSetPosition(t *testing.T) {
	t.Run("starts a move", func(t *testing.T) {
		srv, c := newTestServer(t)

		resp := post(t, srv.URL+"/covers/kitchen/position", `{"level": 1}`)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		var body coverJSON
		decode(t, resp, &body)
		assert.Equal(t, "opening", body.Operation)
		assert.Equal(t, cover.StateRollingUp, c.State())
	})

	t.Run("level is required", func(t *testing.T) {
		srv, c := newTestServer(t)

		resp := post(t, srv.URL+"/covers/kitchen/position", `{}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, cover.StateIdle, c.State())
	})
}

func TestStop(t *testing.T) {
	srv, c := newTestServer(t)
	require.NoError(t, c.SetPosition(0))

	resp := post(t, srv.URL+"/covers/kitchen/stop", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cover.StateIdle, c.State())
}

func TestCalibrate(t *testing.T) {
	t.Run("runs while idle", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := post(t, srv.URL+"/covers/kitchen/calibrate", `{"action": 2}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown action", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := post(t, srv.URL+"/covers/kitchen/calibrate", `{"action": 9}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("refused while moving", func(t *testing.T) {
		srv, c := newTestServer(t)
		require.NoError(t, c.SetPosition(1))

		resp := post(t, srv.URL+"/covers/kitchen/calibrate", `{"action": 0}`)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var body errorJSON
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Error)
	})
}

// statusOnlyCover panics on any getter other than Name and Status.
type statusOnlyCover struct {
	cover.Cover
	status cover.Status
}

func (c statusOnlyCover) Name() string { return "attic" }
func (c statusOnlyCover) Status() cover.Status { return c.status }

func TestCoverJSONUsesOneSnapshot(t *testing.T) {
	t.Run("moving", func(t *testing.T) {
		j := toJSON(statusOnlyCover{status: cover.Status{Level: 0.42, State: cover.StateRollingDown}})

		require.NotNil(t, j.Position)
		assert.Equal(t, 42, *j.Position)
		assert.Equal(t, "closing", j.Operation)
		assert.Equal(t, "rolling down", j.State)
	})

	t.Run("unknown position", func(t *testing.T) {
		j := toJSON(statusOnlyCover{status: cover.Status{Level: cover.UnknownLevel, State: cover.StateIdle}})

		assert.Nil(t, j.Position)
		assert.Equal(t, "idle", j.Operation)
	})
}
