package engineclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/types"
)

func newTestServer(t *testing.T, handler func(method string, params json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int             `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Engine-API methods go through the JWT round-tripper; standard
		// eth_* methods go to the unauthenticated execution endpoint.
		if strings.HasPrefix(req.Method, "engine_") {
			require.NotEmpty(t, r.Header.Get("Authorization"))
		} else {
			require.Empty(t, r.Header.Get("Authorization"))
		}

		result, rpcErr := handler(req.Method, req.Params)
		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestChainID(t *testing.T) {
	srv := newTestServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, methodChainID, method)
		return "0x1", nil
	})
	defer srv.Close()

	client := New(srv.URL, srv.URL, []byte("0123456789abcdef0123456789abcdef"), DefaultRetryConfig())
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestNewPayloadRetriesOnSyncingThenSucceeds(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		calls++
		status := StatusSyncing
		if calls >= 2 {
			status = StatusValid
		}
		return wirePayloadStatus{Status: status}, nil
	})
	defer srv.Close()

	retry := RetryConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond, MaxElapsedTime: time.Second}
	client := New(srv.URL, srv.URL, []byte("secret"), retry)

	payload := &types.ExecutionPayload{}
	status, err := client.NewPayload(context.Background(), payload, nil, types.Hash{})
	require.NoError(t, err)
	require.Equal(t, StatusValid, status.Status)
	require.GreaterOrEqual(t, calls, 2)
}

func TestNewPayloadGivesUpAfterBudgetExhausted(t *testing.T) {
	srv := newTestServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		return wirePayloadStatus{Status: StatusSyncing}, nil
	})
	defer srv.Close()

	retry := RetryConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 2 * time.Millisecond, MaxElapsedTime: 20 * time.Millisecond}
	client := New(srv.URL, srv.URL, []byte("secret"), retry)

	_, err := client.NewPayload(context.Background(), &types.ExecutionPayload{}, nil, types.Hash{})
	require.Error(t, err)
}

func TestForkchoiceUpdatedReturnsPayloadID(t *testing.T) {
	srv := newTestServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, methodForkchoiceUpdatedV3, method)
		return wireForkchoiceUpdatedResponse{
			PayloadStatus: wirePayloadStatus{Status: StatusValid},
			PayloadID:     ptrHexBytes(hexBytes{1, 2, 3, 4, 5, 6, 7, 8}),
		}, nil
	})
	defer srv.Close()

	client := New(srv.URL, srv.URL, []byte("secret"), DefaultRetryConfig())
	id, status, err := client.ForkchoiceUpdated(context.Background(), ForkchoiceState{}, &PayloadAttributes{Timestamp: 1})
	require.NoError(t, err)
	require.Equal(t, StatusValid, status.Status)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, id)
}

func ptrHexBytes(h hexBytes) *hexBytes {
	return &h
}
