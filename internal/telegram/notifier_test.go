package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aircraftconsole/internal/notify"
)

func TestNewWithoutTokenIsNoop(t *testing.T) {
	assert.IsType(t, notify.Noop{}, New("", "-100"))
	assert.IsType(t, notify.Noop{}, New("tok", " "))
}

func TestNotifyGroupPostsMessage(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New("tok", "-100", WithAPIBase(srv.URL+"/"), WithHTTPClient(srv.Client()))
	n.NotifyGroup(context.Background(), "TB2: Wing stock depleted.")

	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, map[string]string{"chat_id": "-100", "text": "TB2: Wing stock depleted."}, got)
}
