package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token() string { return s.token }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, 5*time.Second, staticTokens{token: "tok-1"})
}

func TestClient_SetsBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))

	_, err := client.FetchInbox(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_NoTokenSourceOmitsHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	_, err := client.FetchInbox(context.Background(), 50)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchInbox_PeelsEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mail/inbox", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"emails":[{"_id":"m1"}]}}`))
	}))

	raw, err := client.FetchInbox(context.Background(), 25)
	require.NoError(t, err)
	assert.JSONEq(t, `{"emails":[{"_id":"m1"}]}`, string(raw))
}

func TestFetchInbox_BarePayloadPassesThrough(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"m1"}]`)) // no envelope at all
	}))

	raw, err := client.FetchInbox(context.Background(), 0)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"_id":"m1"}]`, string(raw))
}

func TestClient_UnauthorizedInvalidatesSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))

	invalidated := false
	client.SetOnUnauthorized(func() { invalidated = true })

	_, err := client.FetchInbox(context.Background(), 50)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, invalidated)
}

func TestClient_ServerErrorIncludesMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"mailbox unavailable"}`))
	}))

	_, err := client.FetchInbox(context.Background(), 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox unavailable")
}

func TestLogin(t *testing.T) {
	t.Run("nested user object", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/auth/login", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "nila@example.com", body["email"])

			_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-9","user":{"email":"nila@example.com","username":"nila"}}}`))
		}))

		token, user, err := client.Login(context.Background(), "nila@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "tok-9", token)
		assert.Equal(t, "nila", user.Username)
	})

	t.Run("flat identity fields", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-9","email":"nila@example.com","username":"nila"}}`))
		}))

		token, user, err := client.Login(context.Background(), "nila@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "tok-9", token)
		assert.Equal(t, "nila@example.com", user.Email)
	})

	t.Run("missing token is an error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
		}))

		_, _, err := client.Login(context.Background(), "nila@example.com", "pw")
		assert.Error(t, err)
	})
}

func TestSendMail(t *testing.T) {
	var got SendRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mail/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	err := client.SendMail(context.Background(), SendRequest{To: "a@b.com", Subject: "Hi", Body: "Body", CC: "c@d.com"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.To)
	assert.Equal(t, "c@d.com", got.CC)
}

func TestMarkRead(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	require.NoError(t, client.MarkRead(context.Background(), "m42"))
	assert.Equal(t, "/api/mail/m42/read", gotPath)
}

const rawMessageSource = "From: Mira <mira@example.com>\r\n" +
	"To: nila@example.com\r\n" +
	"Subject: Lunch plan\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Sushi at noon?\r\n" +
	"--b1\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"menu.pdf\"\r\n" +
	"\r\n" +
	"%PDF-fake\r\n" +
	"--b1--\r\n"

func TestFetchMessage(t *testing.T) {
	t.Run("parses raw source", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/mail/email/m42", r.URL.Path)

			payload, err := json.Marshal(map[string]any{"raw": rawMessageSource})
			require.NoError(t, err)
			_, _ = w.Write([]byte(`{"success":true,"data":` + string(payload) + `}`))
		}))

		detail, err := client.FetchMessage(context.Background(), "m42")
		require.NoError(t, err)
		assert.Equal(t, "m42", detail.UID)
		assert.Equal(t, "Lunch plan", detail.Subject)
		assert.Contains(t, detail.From, "mira@example.com")
		assert.Contains(t, detail.TextBody, "Sushi at noon?")
		assert.Equal(t, []string{"menu.pdf"}, detail.Attachments)
	})

	t.Run("falls back to parsed fields", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{"subject":"Hi","from":"a@b.com","body":"plain"}}`))
		}))

		detail, err := client.FetchMessage(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, "Hi", detail.Subject)
		assert.Equal(t, "plain", detail.TextBody)
		assert.Empty(t, detail.Attachments)
	})
}

func TestAccountOperations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/emails/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"i1","address":"nila@example.com","is_primary":true}]}`))
	})
	mux.HandleFunc("/api/emails/i1/set-primary", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/api/groups/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"g1","name":"Team","member_count":3}]}`))
	})
	mux.HandleFunc("/api/groups/g1/send", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "All hands", body["subject"])
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	identities, err := client.ListIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 1)
	assert.True(t, identities[0].IsPrimary)

	require.NoError(t, client.SetPrimaryIdentity(ctx, "i1"))

	groups, err := client.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Team", groups[0].Name)

	require.NoError(t, client.SendBroadcast(ctx, "g1", "All hands", "Meeting at 4"))
}
