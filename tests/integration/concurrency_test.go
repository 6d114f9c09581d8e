package integration

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentConfirm_SingleCredit fires many confirm calls at one
// funded order. The status CAS admits exactly one winner, so the ledger
// must be credited exactly once no matter how the calls interleave.
// Losers of the race see either ALREADY_PAID or a retryable error;
// neither touches the balance.
func TestConcurrentConfirm_SingleCredit(t *testing.T) {
	app := newTestApp(t, testEngineConfig())

	code, envelope := app.postJSON(t, "/api/v1/deposits",
		`{"user_id":"racer","amount_usd":"50","currency":"USDT"}`, "")
	require.Equal(t, http.StatusCreated, code)
	orderID := int64(data(t, envelope)["id"].(float64))

	app.markReceived(t, "USDT", "TTestAddress", "50")

	concurrency := 50
	var wg sync.WaitGroup
	var paidCount, alreadyPaidCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, envelope := app.postJSON(t, orderPath(orderID)+"/confirm", "", "")
			if code != http.StatusOK {
				return
			}
			switch data(t, envelope)["outcome"] {
			case "PAID":
				paidCount.Add(1)
			case "ALREADY_PAID":
				alreadyPaidCount.Add(1)
			}
		}()
	}
	wg.Wait()

	t.Logf("confirms: %d paid, %d already-paid (out of %d)", paidCount.Load(), alreadyPaidCount.Load(), concurrency)

	assert.Equal(t, int64(1), paidCount.Load(), "exactly one confirm may win the CAS")

	code, envelope = app.getJSON(t, "/api/v1/users/racer")
	require.Equal(t, http.StatusOK, code)
	ledger := data(t, envelope)
	assert.Equal(t, "50", ledger["balance"], "the deposit must credit exactly once")
	assert.Equal(t, "50", ledger["total_deposited"])
}

// TestConcurrentDeposits_LedgerAdds runs many full deposit cycles for the
// same user in parallel and checks the ledger equals the exact sum. The
// manual payment oracle is cumulative per address, so funding the total
// up front covers every order.
func TestConcurrentDeposits_LedgerAdds(t *testing.T) {
	app := newTestApp(t, testEngineConfig())

	concurrency := 10
	app.markReceived(t, "USDT", "TTestAddress", "100") // 10 orders x 10 USD

	var wg sync.WaitGroup
	var paid atomic.Int64
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, envelope := app.postJSON(t, "/api/v1/deposits",
				`{"user_id":"grinder","amount_usd":"10","currency":"USDT"}`, "")
			if code != http.StatusCreated {
				return
			}
			orderID := int64(data(t, envelope)["id"].(float64))
			code, envelope = app.postJSON(t, orderPath(orderID)+"/confirm", "", "")
			if code == http.StatusOK && data(t, envelope)["outcome"] == "PAID" {
				paid.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(concurrency), paid.Load(), "every funded order must pay")

	code, envelope := app.getJSON(t, "/api/v1/users/grinder")
	require.Equal(t, http.StatusOK, code)
	ledger := data(t, envelope)
	assert.Equal(t, "100", ledger["balance"])
	assert.Equal(t, "100", ledger["total_deposited"])

	code, envelope = app.getJSON(t, "/api/v1/users/grinder/orders")
	require.Equal(t, http.StatusOK, code)
	orders := envelope["data"].([]interface{})
	require.Len(t, orders, concurrency)
	for _, raw := range orders {
		assert.Equal(t, "PAID", raw.(map[string]interface{})["status"])
	}
}
