package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ArtieFishal/lastwish/internal/config"
	"github.com/ArtieFishal/lastwish/internal/models"
)

// fakeAggregator returns a canned result or error.
type fakeAggregator struct {
	result models.AggregationResult
	err    error

	gotAddress  string
	gotChain    models.Chain
	gotCurrency string
}

func (f *fakeAggregator) WalletAssets(ctx context.Context, address string, chain models.Chain, currency string) (models.AggregationResult, error) {
	f.gotAddress = address
	f.gotChain = chain
	f.gotCurrency = currency
	if f.err != nil {
		return models.AggregationResult{}, f.err
	}
	return f.result, nil
}

// fakeSnapshots records saves and serves canned history.
type fakeSnapshots struct {
	saved   []models.AggregationResult
	saveErr error
	history []models.AggregationResult
	histErr error
}

func (f *fakeSnapshots) Save(ctx context.Context, result models.AggregationResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeSnapshots) Latest(ctx context.Context, address string, chain models.Chain) (models.AggregationResult, error) {
	if len(f.history) == 0 {
		return models.AggregationResult{}, config.ErrSnapshotNotFound
	}
	return f.history[0], nil
}

func (f *fakeSnapshots) History(ctx context.Context, address string, chain models.Chain, limit int) ([]models.AggregationResult, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func setupWalletRouter(svc Aggregator, snapshots SnapshotStore) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/wallet/{chain}/{address}/assets", GetWalletAssets(svc, snapshots))
	r.Get("/api/wallet/{chain}/{address}/snapshots", GetWalletSnapshots(snapshots))
	return r
}

func sampleResult() models.AggregationResult {
	total, _ := decimal.NewFromString("7600")
	balance, _ := decimal.NewFromString("2.5")
	return models.AggregationResult{
		Address:  "0x000000000000000000000000000000000000dEaD",
		Chain:    models.ChainETH,
		Currency: "usd",
		Assets: []models.Asset{{
			Symbol:         "ETH",
			Name:           "Ethereum",
			Balance:        balance,
			TokenType:      models.TokenTypeNative,
			Decimals:       18,
			PriceAvailable: true,
		}},
		TotalValueFiat: total,
		FetchedAt:      time.Now().UTC(),
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var apiErr models.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return apiErr
}

func TestGetWalletAssets_Success(t *testing.T) {
	svc := &fakeAggregator{result: sampleResult()}
	snapshots := &fakeSnapshots{}
	router := setupWalletRouter(svc, snapshots)

	req := httptest.NewRequest("GET", "/api/wallet/eth/0x000000000000000000000000000000000000dEaD/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	if svc.gotChain != models.ChainETH {
		t.Errorf("chain passed = %s, want ETH", svc.gotChain)
	}
	if svc.gotCurrency != "usd" {
		t.Errorf("currency passed = %q, want usd (default)", svc.gotCurrency)
	}

	var resp struct {
		Data models.AggregationResult `json:"data"`
		Meta *models.APIMeta          `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.TotalValueFiat.String() != "7600" {
		t.Errorf("TotalValueFiat = %s, want 7600", resp.Data.TotalValueFiat)
	}
	if resp.Meta == nil {
		t.Error("meta missing")
	}

	// A successful aggregation is snapshotted.
	if len(snapshots.saved) != 1 {
		t.Errorf("saved %d snapshots, want 1", len(snapshots.saved))
	}
}

func TestGetWalletAssets_CurrencyParam(t *testing.T) {
	svc := &fakeAggregator{result: sampleResult()}
	router := setupWalletRouter(svc, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/assets?currency=EUR", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if svc.gotCurrency != "eur" {
		t.Errorf("currency passed = %q, want eur (lowercased)", svc.gotCurrency)
	}
}

func TestGetWalletAssets_InvalidChain(t *testing.T) {
	svc := &fakeAggregator{result: sampleResult()}
	router := setupWalletRouter(svc, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/doge/0xabc/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != config.ErrorInvalidChain {
		t.Errorf("error code = %q, want %q", got, config.ErrorInvalidChain)
	}
	if svc.gotAddress != "" {
		t.Error("aggregator should not be called for invalid chain")
	}
}

func TestGetWalletAssets_InvalidAddress(t *testing.T) {
	svc := &fakeAggregator{err: fmt.Errorf("%w: bad", config.ErrInvalidAddress)}
	router := setupWalletRouter(svc, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/eth/nonsense/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != config.ErrorInvalidAddress {
		t.Errorf("error code = %q, want %q", got, config.ErrorInvalidAddress)
	}
}

func TestGetWalletAssets_RateLimited(t *testing.T) {
	svc := &fakeAggregator{err: fmt.Errorf("aggregation aborted: %w", config.ErrProviderRateLimit)}
	router := setupWalletRouter(svc, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != config.ErrorProviderRateLimit {
		t.Errorf("error code = %q, want %q", got, config.ErrorProviderRateLimit)
	}
}

func TestGetWalletAssets_AggregationFailure(t *testing.T) {
	svc := &fakeAggregator{err: errors.New("everything is on fire")}
	router := setupWalletRouter(svc, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != config.ErrorAggregationFailed {
		t.Errorf("error code = %q, want %q", got, config.ErrorAggregationFailed)
	}
}

func TestGetWalletAssets_SnapshotFailureDoesNotFailRequest(t *testing.T) {
	svc := &fakeAggregator{result: sampleResult()}
	snapshots := &fakeSnapshots{saveErr: errors.New("disk full")}
	router := setupWalletRouter(svc, snapshots)

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite snapshot failure", w.Code)
	}
}

func TestGetWalletSnapshots_Success(t *testing.T) {
	snapshots := &fakeSnapshots{history: []models.AggregationResult{sampleResult(), sampleResult()}}
	router := setupWalletRouter(&fakeAggregator{}, snapshots)

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/snapshots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Data []models.AggregationResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("got %d snapshots, want 2", len(resp.Data))
	}
}

func TestGetWalletSnapshots_NotFound(t *testing.T) {
	router := setupWalletRouter(&fakeAggregator{}, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/eth/0xabc/snapshots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != config.ErrorSnapshotNotFound {
		t.Errorf("error code = %q, want %q", got, config.ErrorSnapshotNotFound)
	}
}

func TestGetWalletSnapshots_InvalidChain(t *testing.T) {
	router := setupWalletRouter(&fakeAggregator{}, &fakeSnapshots{})

	req := httptest.NewRequest("GET", "/api/wallet/xrp/0xabc/snapshots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
