package tomojdom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jkowalik/billwatch/internal/common"
	"github.com/jkowalik/billwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePortal is a minimal stand-in for the portal API.
type fakePortal struct {
	t *testing.T

	loginStatus int
	loginBody   string

	accountBody string

	// historyByYear maps a year to the raw JSON body for that year's
	// history request. Years not present respond with an empty list.
	historyByYear map[int]string
	queriedYears  []int

	documentBody []byte

	lastAuth      string
	lastUserAgent string
}

func (p *fakePortal) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		p.lastUserAgent = r.Header.Get("User-Agent")
		var creds struct {
			User int64  `json:"User"`
			Pass string `json:"Pass"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&creds))
		if p.loginStatus != 0 && p.loginStatus != http.StatusOK {
			w.WriteHeader(p.loginStatus)
			return
		}
		fmt.Fprint(w, p.loginBody)
	})
	mux.HandleFunc("/api/WmsOsoby", func(w http.ResponseWriter, r *http.Request) {
		p.lastAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, p.accountBody)
	})
	mux.HandleFunc("/api/RozliczeniaSzczegolowe", func(w http.ResponseWriter, r *http.Request) {
		p.lastAuth = r.Header.Get("Authorization")
		var req struct {
			Rok int   `json:"Rok"`
			WId int64 `json:"WId"`
		}
		require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
		p.queriedYears = append(p.queriedYears, req.Rok)
		body, ok := p.historyByYear[req.Rok]
		if !ok {
			body = "[]"
		}
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/api/WydrukDokument", func(w http.ResponseWriter, r *http.Request) {
		p.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(p.documentBody)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, portal *fakePortal, now time.Time) (*Client, *httptest.Server) {
	t.Helper()
	portal.t = t
	srv := portal.server()
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		LoginURL: srv.URL + "/login",
		APIURL:   srv.URL + "/api",
	})
	client.now = func() time.Time { return now }
	t.Cleanup(client.Close)
	return client, srv
}

func TestLogin(t *testing.T) {
	portal := &fakePortal{loginBody: `[0, "ignored", "jwt-token-123"]`}
	client, _ := newTestClient(t, portal, time.Now())

	err := client.Login(context.Background(), model.Credential{Username: 42, Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token-123", client.token)
	assert.Contains(t, portal.lastUserAgent, "billwatch/")
}

func TestLoginRejected(t *testing.T) {
	portal := &fakePortal{loginStatus: http.StatusUnauthorized}
	client, _ := newTestClient(t, portal, time.Now())

	err := client.Login(context.Background(), model.Credential{Username: 42, Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Empty(t, client.token)
}

func TestLoginMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "too short", body: `["only", "two"]`},
		{name: "not an array", body: `{"token": "x"}`},
		{name: "token not a string", body: `[0, 1, 2]`},
		{name: "empty token", body: `[0, 1, ""]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakePortal{loginBody: tt.body}
			client, _ := newTestClient(t, portal, time.Now())

			err := client.Login(context.Background(), model.Credential{Username: 42, Password: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrAuth)
		})
	}
}

func TestAccountID(t *testing.T) {
	portal := &fakePortal{
		loginBody:   `[0, 0, "tok"]`,
		accountBody: `[[0, 1, 2, 3, 4, 5, [[0, 98765]]]]`,
	}
	client, _ := newTestClient(t, portal, time.Now())
	require.NoError(t, client.Login(context.Background(), model.Credential{Username: 1, Password: "x"}))

	id, err := client.AccountID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(98765), id)
	assert.Equal(t, "Bearer tok", portal.lastAuth)
}

func TestAccountIDShapeDrift(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty response", body: `[]`},
		{name: "nested array too short", body: `[[0, 1, 2]]`},
		{name: "id is not a number", body: `[[0, 1, 2, 3, 4, 5, [[0, "98765"]]]]`},
		{name: "not an array", body: `{"wid": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakePortal{accountBody: tt.body}
			client, _ := newTestClient(t, portal, time.Now())

			_, err := client.AccountID(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrDecoding)
		})
	}
}

func TestDownloadDocument(t *testing.T) {
	portal := &fakePortal{documentBody: []byte("%PDF-1.4 fake")}
	client, _ := newTestClient(t, portal, time.Now())

	charge := model.Charge{
		ID:     model.SomeInt(7),
		Year:   2025,
		Period: model.SomeInt(2),
		Title:  "Feb",
	}
	doc, err := client.DownloadDocument(context.Background(), 98765, charge)
	require.NoError(t, err)
	assert.Equal(t, "Feb.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 fake"), doc.Data)
}

func TestTransportErrorOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{LoginURL: srv.URL, APIURL: srv.URL})
	t.Cleanup(client.Close)

	_, err := client.AccountID(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransport)
}

func TestValueAt(t *testing.T) {
	data := []byte(`[[1, [2, 3]], 4]`)

	raw, err := valueAt(data, 0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "3", string(raw))

	_, err = valueAt(data, 5)
	assert.ErrorIs(t, err, common.ErrDecoding)

	_, err = valueAt(data, 1, 0)
	assert.ErrorIs(t, err, common.ErrDecoding)
}
