package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kvMetadata = `{"created_time":"2024-01-01T00:00:00.000000Z","custom_metadata":null,"deletion_time":"","destroyed":false,"version":%d}`

// kvServer emulates the KV-v2 data endpoints under the "secret" mount.
func kvServer(t *testing.T, reads *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/secret/data/AppSecrets":
			atomic.AddInt32(reads, 1)
			_, _ = io.WriteString(w, `{"data":{"data":{"jwt_secret":"xyz","port":5432},"metadata":`+
				fmtVersion(1)+`}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/secret/data/Forbidden":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"errors":["permission denied"]}`)
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[]}`)
		case (r.Method == http.MethodPut || r.Method == http.MethodPost) && r.URL.Path == "/v1/secret/data/NewGroup":
			var body struct {
				Data map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "abc", body.Data["jwt_secret"])
			_, _ = io.WriteString(w, `{"data":`+fmtVersion(1)+`}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func fmtVersion(v int) string { return fmt.Sprintf(kvMetadata, v) }

func newVaultClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	be, err := NewVault(VaultOptions{Address: srv.URL, Token: "test-token"})
	require.NoError(t, err)
	return New(be)
}

func TestVaultFetchGroup(t *testing.T) {
	var reads int32
	srv := kvServer(t, &reads)
	defer srv.Close()
	cli := newVaultClient(t, srv)
	ctx := context.Background()

	got, err := cli.FetchGroup(ctx, "AppSecrets")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"jwt_secret": "xyz", "port": "5432"}, got)

	_, err = cli.FetchGroup(ctx, "AppSecrets")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reads))
}

func TestVaultFetchGroupErrors(t *testing.T) {
	var reads int32
	srv := kvServer(t, &reads)
	defer srv.Close()
	cli := newVaultClient(t, srv)
	ctx := context.Background()

	_, err := cli.FetchGroup(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cli.FetchGroup(ctx, "Forbidden")
	assert.ErrorIs(t, err, ErrAccessDenied)

	assert.Equal(t, "fallback", cli.Value(ctx, "Forbidden", "jwt_secret", "fallback"))
}

func TestVaultPutGroup(t *testing.T) {
	var reads int32
	srv := kvServer(t, &reads)
	defer srv.Close()
	cli := newVaultClient(t, srv)

	created, err := cli.PutGroup(context.Background(), "NewGroup", map[string]string{"jwt_secret": "abc"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "abc", cli.Value(context.Background(), "NewGroup", "jwt_secret", ""))
}

func TestVaultRawReadModifyWriteKeepsTypes(t *testing.T) {
	var written []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"data":{"data":{"db_port":5432,"feature":true,"meta":{"a":1}},"metadata":`+
				fmtVersion(3)+`}}`)
		case http.MethodPut, http.MethodPost:
			var body struct {
				Data json.RawMessage `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			written = body.Data
			_, _ = io.WriteString(w, `{"data":`+fmtVersion(4)+`}`)
		}
	}))
	defer srv.Close()
	cli := newVaultClient(t, srv)
	ctx := context.Background()

	raw, err := cli.FetchRaw(ctx, "AppSecrets")
	require.NoError(t, err)
	assert.JSONEq(t, `5432`, string(raw["db_port"]))

	raw["jwt_secret"] = StringValue("x")
	created, err := cli.PutRaw(ctx, "AppSecrets", raw)
	require.NoError(t, err)
	assert.False(t, created)
	assert.JSONEq(t, `{"db_port":5432,"feature":true,"meta":{"a":1},"jwt_secret":"x"}`, string(written))
}
