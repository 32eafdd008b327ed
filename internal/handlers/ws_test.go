package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialWS opens a websocket against the harness router served over a
// real listener, authenticating with the query-parameter token.
func dialWS(t *testing.T, server *httptest.Server, accessToken string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + url.QueryEscape(accessToken)
	return websocket.DefaultDialer.Dial(wsURL, nil)
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWebsocketRejectsInvalidToken(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/ws?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_INVALID", errorCode(t, resp))
}

func TestWebsocketRejectsRevokedToken(t *testing.T) {
	h := newHarness(t)
	server := httptest.NewServer(h.router)
	defer server.Close()

	accessToken := h.signupAndLogin(t, "walter", "walter@example.com", "secretpw")
	resp := h.do(t, http.MethodGet, "/logout", accessToken, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	conn, handshake, err := dialWS(t, server, accessToken)
	require.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	require.NotNil(t, handshake)
	assert.Equal(t, http.StatusForbidden, handshake.StatusCode)
}

func TestWebsocketLifecycle(t *testing.T) {
	h := newHarness(t)
	server := httptest.NewServer(h.router)
	defer server.Close()

	accessToken := h.signupAndLogin(t, "wanda", "wanda@example.com", "secretpw")
	claims, err := h.tokens.Decode(accessToken)
	require.NoError(t, err)
	userID := claims.User.ID

	conn, _, err := dialWS(t, server, accessToken)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.hub.Connections(userID) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// Concurrent workflow events for one user must all arrive intact
	// over the single connection.
	const sends = 32
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.hub.Send(userID, map[string]string{"event": "PURCHASE_ADD"})
		}()
	}

	for i := 0; i < sends; i++ {
		var message map[string]string
		require.NoError(t, conn.ReadJSON(&message))
		assert.Equal(t, "PURCHASE_ADD", message["event"])
	}
	wg.Wait()

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return h.hub.Connections(userID) == 0
	}, time.Second, 10*time.Millisecond)
}
