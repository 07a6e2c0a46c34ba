package unifi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedibtc/unifi-client/internal/testutil"
)

const voucherListing = `[
	{"_id":"v1","code":"12345-67890","create_time":1700000000,"duration":480,"quota":1,"status":"VALID_ONE"},
	{"_id":"v2","code":"09876-54321","create_time":1700000000,"duration":480,"quota":1,"status":"VALID_ONE"},
	{"_id":"v3","code":"11111-22222","create_time":1690000000,"duration":60,"quota":0,"used":3,"status":"USED"}
]`

func TestCreateVouchers(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	bodies := captureJSON(t, m, "/api/s/default/cmd/hotspot",
		testutil.OKEnvelope(`[{"create_time":1700000000}]`))
	m.HandleJSON("/api/s/default/stat/voucher", http.StatusOK, testutil.OKEnvelope(voucherListing))

	client := newTestClient(t, m)

	vouchers, err := client.Vouchers().Create(context.Background(), CreateVoucherRequest{
		Count:   2,
		Minutes: 480,
		Quota:   1,
		Note:    "conference",
	})
	require.NoError(t, err)

	// Only the batch with the reported create_time comes back.
	require.Len(t, vouchers, 2)
	assert.Equal(t, "12345-67890", vouchers[0].Code)
	assert.Equal(t, "09876-54321", vouchers[1].Code)

	sent := bodies()
	require.Len(t, sent, 1)
	assert.Equal(t, "create-voucher", sent[0]["cmd"])
	assert.EqualValues(t, 2, sent[0]["n"])
	assert.EqualValues(t, 480, sent[0]["expire"])
	assert.EqualValues(t, 1, sent[0]["quota"])
	assert.Equal(t, "conference", sent[0]["note"])
}

// Quota 0 means multi-use and must still reach the controller; it is the
// one zero-valued field that cannot be omitted.
func TestCreateVouchersMultiUseQuota(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	bodies := captureJSON(t, m, "/api/s/default/cmd/hotspot",
		testutil.OKEnvelope(`[{"create_time":1690000000}]`))
	m.HandleJSON("/api/s/default/stat/voucher", http.StatusOK, testutil.OKEnvelope(voucherListing))

	client := newTestClient(t, m)

	_, err := client.Vouchers().Create(context.Background(), CreateVoucherRequest{
		Count:   1,
		Minutes: 60,
		Quota:   0,
	})
	require.NoError(t, err)

	sent := bodies()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "quota")
	assert.EqualValues(t, 0, sent[0]["quota"])
}

func TestCreateVouchersValidation(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	client := newTestClient(t, m)

	tests := []struct {
		name string
		req  CreateVoucherRequest
	}{
		{"zero count", CreateVoucherRequest{Minutes: 60}},
		{"zero minutes", CreateVoucherRequest{Count: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := client.Vouchers().Create(context.Background(), tt.req)
			require.Error(t, err)

			var cerr *ConfigError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestListVouchers(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/s/default/stat/voucher", http.StatusOK, testutil.OKEnvelope(voucherListing))

	client := newTestClient(t, m)

	vouchers, err := client.Vouchers().List(context.Background())
	require.NoError(t, err)
	require.Len(t, vouchers, 3)
	assert.Equal(t, VoucherValid, vouchers[0].Status)
	assert.Equal(t, VoucherUsed, vouchers[2].Status)
	assert.Equal(t, "Code: 12345-67890 (VALID_ONE)", vouchers[0].String())
}

func TestDeleteVoucher(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	bodies := captureJSON(t, m, "/api/s/default/cmd/hotspot", testutil.OKEnvelope(`[]`))

	client := newTestClient(t, m)

	require.NoError(t, client.Vouchers().Delete(context.Background(), "v1"))

	sent := bodies()
	require.Len(t, sent, 1)
	assert.Equal(t, "delete-voucher", sent[0]["cmd"])
	assert.Equal(t, "v1", sent[0]["_id"])
}

func TestDeleteVoucherValidation(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	client := newTestClient(t, m)

	err := client.Vouchers().Delete(context.Background(), "")
	require.Error(t, err)

	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestDeleteAllVouchers(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/s/default/stat/voucher", http.StatusOK, testutil.OKEnvelope(voucherListing))
	bodies := captureJSON(t, m, "/api/s/default/cmd/hotspot", testutil.OKEnvelope(`[]`))

	client := newTestClient(t, m)

	deleted, err := client.Vouchers().DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Len(t, bodies(), 3)
}
