package e2etests

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run against a live API:
//
//	E2E_BASE_URL=http://localhost:8080 go test ./e2e_tests/...
//
// E2E_SIGNING_SECRET must match API_SIGNING_SECRET when signing is on.
const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

type client struct {
	t       *testing.T
	baseURL string
	secret  string
}

func newClient(t *testing.T) *client {
	t.Helper()

	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		t.Skip("E2E_BASE_URL not set")
	}

	c := &client{t: t, baseURL: base, secret: os.Getenv("E2E_SIGNING_SECRET")}
	c.waitUntilReady()

	return c
}

type balances struct {
	Checking               decimal.Decimal `json:"checking"`
	Cash                   decimal.Decimal `json:"cash"`
	RemainingTransferLimit decimal.Decimal `json:"remainingTransferLimit"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(c.t, err)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(data))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	if c.secret != "" && method != http.MethodGet {
		mac := hmac.New(sha256.New, []byte(c.secret))
		mac.Write(data)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := httpClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, out), string(raw))
	}

	return resp.StatusCode
}

func (c *client) waitUntilReady() {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			c.t.Fatalf("service not ready at %s within %s", c.baseURL, waitReady)
		case <-tick.C:
			resp, err := httpClient.Get(c.baseURL + "/healthz")
			if err != nil {
				continue
			}

			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}

func (c *client) openAccount() (uuid.UUID, balances) {
	c.t.Helper()

	id := uuid.New()

	var bal balances
	code := c.do(http.MethodPost, "/players/"+id.String()+"/account", nil, &bal)
	require.Equal(c.t, http.StatusCreated, code)

	return id, bal
}

func TestE2E_AccountsFlow(t *testing.T) {
	c := newClient(t)

	alice, start := c.openAccount()
	bob, _ := c.openAccount()
	aliceURL := "/players/" + alice.String()

	t.Run("create_twice_conflicts", func(t *testing.T) {
		var e apiError
		code := c.do(http.MethodPost, aliceURL+"/account", nil, &e)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "already_exists", e.Error)
	})

	t.Run("cash_round_trip", func(t *testing.T) {
		var bal balances
		code := c.do(http.MethodPost, aliceURL+"/cash/add", map[string]string{"amount": "50"}, &bal)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, bal.Cash.Equal(decimal.NewFromInt(50)))

		code = c.do(http.MethodPost, aliceURL+"/deposit", map[string]string{"amount": "50"}, &bal)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, bal.Cash.IsZero())
		assert.True(t, bal.Checking.Equal(start.Checking.Add(decimal.NewFromInt(50))))
	})

	t.Run("overdraft_rejected", func(t *testing.T) {
		var e apiError
		too := start.Checking.Add(decimal.NewFromInt(51)).StringFixed(2)
		code := c.do(http.MethodPost, aliceURL+"/transfer", map[string]string{"targetId": bob.String(), "amount": too}, &e)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "insufficient_funds", e.Error)
	})

	t.Run("transfer", func(t *testing.T) {
		var bal balances
		code := c.do(http.MethodPost, aliceURL+"/transfer", map[string]string{"targetId": bob.String(), "amount": "10.25"}, &bal)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, bal.Checking.Equal(start.Checking.Add(decimal.RequireFromString("39.75"))))
	})

	t.Run("bad_precision", func(t *testing.T) {
		var e apiError
		code := c.do(http.MethodPost, aliceURL+"/cash/add", map[string]string{"amount": "1.234"}, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "validation", e.Error)
	})

	t.Run("unknown_player", func(t *testing.T) {
		code := c.do(http.MethodGet, "/players/"+uuid.New().String()+"/credit", nil, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestE2E_OrdersAndCredit(t *testing.T) {
	c := newClient(t)

	alice, _ := c.openAccount()
	bob, _ := c.openAccount()
	aliceURL := "/players/" + alice.String()

	var order struct {
		ID     uuid.UUID `json:"id"`
		Active bool      `json:"active"`
	}

	code := c.do(http.MethodPost, aliceURL+"/orders",
		map[string]any{"payeeId": bob.String(), "amount": "1", "intervalDays": 7}, &order)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, order.Active)

	var list struct {
		SlotsUsed int `json:"slotsUsed"`
		SlotsMax  int `json:"slotsMax"`
	}
	code = c.do(http.MethodGet, aliceURL+"/orders", nil, &list)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, list.SlotsUsed)
	assert.Positive(t, list.SlotsMax)

	code = c.do(http.MethodPost, aliceURL+"/orders/"+order.ID.String()[:8]+"/pause", nil, &order)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, order.Active)

	code = c.do(http.MethodDelete, aliceURL+"/orders/"+order.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, code)

	var credit struct {
		Score  int    `json:"score"`
		Rating string `json:"rating"`
		Offers []struct {
			ID string `json:"id"`
		} `json:"offers"`
	}
	code = c.do(http.MethodGet, aliceURL+"/credit", nil, &credit)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, credit.Rating)
	assert.Len(t, credit.Offers, 3)

	var quotes struct {
		Quotes []struct {
			Symbol string `json:"symbol"`
		} `json:"quotes"`
	}
	code = c.do(http.MethodGet, "/market/quotes", nil, &quotes)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, quotes.Quotes, 3)
}
