package adapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emerald-consensus/emerald/assembler"
	"github.com/emerald-consensus/emerald/consensusevents"
	"github.com/emerald-consensus/emerald/engineclient"
	"github.com/emerald-consensus/emerald/metrics"
	"github.com/emerald-consensus/emerald/registry"
	"github.com/emerald-consensus/emerald/store"
	"github.com/emerald-consensus/emerald/types"
)

// emptyRegistryCaller answers every eth_call with an empty validator
// set, satisfying registry.Reader's caller interface structurally
// without needing the EL fixture below to understand ABI encoding.
type emptyRegistryCaller struct{}

func (emptyRegistryCaller) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	ptr := out.(*string)
	*ptr = "0x0000000000000000000000000000000000000000000000000000000000000000"
	return nil
}

type rpcRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func newFakeEngine(t *testing.T, handlers map[string]func() interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		h, ok := handlers[req.Method]
		require.True(t, ok, "unexpected method %s", req.Method)
		result := h()

		raw, err := json.Marshal(result)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": json.RawMessage(raw),
		}))
	}))
}

func newTestAdapter(t *testing.T, engineURL string) (*Adapter, store.Store) {
	t.Helper()
	engine := engineclient.New(engineURL, engineURL, []byte("secret"), engineclient.DefaultRetryConfig())
	st := store.NewMemoryStore()
	asm := assembler.New()
	reg := registry.New(emptyRegistryCaller{})
	m := metrics.New("emerald_adapter_test")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := Config{ChainID: "emerald-test", CertificatePruneWindow: 0, BodyPruneWindow: 0}
	return New(cfg, engine, st, asm, reg, m, log), st
}

func hexQuantity(n uint64) string { return "0x" + uint64ToHex(n) }

func uint64ToHex(n uint64) string {
	if n == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%16]
		n /= 16
	}
	return string(buf[i:])
}

func TestConsensusReadyAnchorsToLatestHeight(t *testing.T) {
	srv := newFakeEngine(t, map[string]func() interface{}{
		"eth_getBlockByNumber": func() interface{} {
			return map[string]interface{}{"number": hexQuantity(5), "hash": "0x" + hexRepeat("aa", 32)}
		},
	})
	defer srv.Close()

	a, _ := newTestAdapter(t, srv.URL)
	ctx := context.Background()

	ev := consensusevents.NewConsensusReady()
	require.NoError(t, a.Submit(ctx, ev))

	go a.Run(ctx)
	reply := <-ev.Reply
	require.NoError(t, reply.ConsensusReadyReply.Err)
	require.Equal(t, types.Height(6), reply.ConsensusReadyReply.StartHeight)
	require.NotNil(t, reply.ConsensusReadyReply.ValidatorSet)
}

func TestGetValueThenDecidedCommitsHeight(t *testing.T) {
	var fcuCalls, newPayloadCalls int
	srv := newFakeEngine(t, map[string]func() interface{}{
		"engine_forkchoiceUpdatedV3": func() interface{} {
			fcuCalls++
			resp := map[string]interface{}{
				"payloadStatus": map[string]interface{}{"status": "VALID"},
			}
			if fcuCalls == 1 {
				resp["payloadId"] = "0x0102030405060708"
			}
			return resp
		},
		"engine_getPayloadV3": func() interface{} {
			return map[string]interface{}{"blockNumber": hexQuantity(1)}
		},
		"engine_newPayloadV3": func() interface{} {
			newPayloadCalls++
			return map[string]interface{}{"status": "VALID"}
		},
	})
	defer srv.Close()

	a, st := newTestAdapter(t, srv.URL)
	ctx := context.Background()
	go a.Run(ctx)

	getValueEv := consensusevents.NewGetValue(types.Height(1), types.Round(0), time.Now().Add(5*time.Second))
	require.NoError(t, a.Submit(ctx, getValueEv))
	getValueReply := <-getValueEv.Reply
	require.NoError(t, getValueReply.GetValueReply.Err)
	require.NotNil(t, getValueReply.GetValueReply.Payload)

	cert := &types.CommitCertificate{Height: 1, Round: 0, Bytes: []byte("quorum-cert")}
	decidedEv := consensusevents.NewDecided(types.Height(1), types.Round(0), cert)
	require.NoError(t, a.Submit(ctx, decidedEv))
	decidedReply := <-decidedEv.Reply
	require.NoError(t, decidedReply.DecidedReply.Err)

	require.Equal(t, 2, fcuCalls)
	require.Equal(t, 1, newPayloadCalls)

	latest, err := st.GetLatestHeight()
	require.NoError(t, err)
	require.Equal(t, types.Height(1), latest)

	storedCert, err := st.LoadCertificate(types.Height(1))
	require.NoError(t, err)
	require.Equal(t, cert.Bytes, storedCert.Bytes)
}

func TestGetDecidedValueRespondsNotFoundOutsideWindow(t *testing.T) {
	a, _ := newTestAdapter(t, "http://unused.invalid")
	ctx := context.Background()
	go a.Run(ctx)

	ev := consensusevents.NewGetDecidedValue(types.Height(99))
	require.NoError(t, a.Submit(ctx, ev))
	reply := <-ev.Reply
	require.False(t, reply.GetDecidedValueReply.Found)
}

func hexRepeat(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
