package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"tokenledger/internal/config"
	"tokenledger/internal/infrastructure/database"
	"tokenledger/internal/service"
	"tokenledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				LedgerEvents:   "ledger.events",
				TopupConfirmed: "ledger.topup.confirmed",
			},
		},
		Business: config.BusinessConfig{
			ReferralPercent:          10,
			AnimateCostDiamonds:      5,
			GenerationTimeoutMinutes: 30,
			MaxRetryCount:            5,
		},
	}

	accounts := service.NewAccountService(db)
	ledger := service.NewLedgerService(db, cfg)
	confirm := service.NewConfirmService(db, nil, cfg)
	topups := service.NewTopupService(ledger)
	generations := service.NewGenerationService(db, cfg, ledger)

	return NewRouter(NewHandler(accounts, ledger, confirm, topups, generations))
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) response.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: HTTP %d: %s", method, path, w.Code, w.Body.String())
	}
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v: %s", err, w.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d, want 200", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)
	resp := doJSON(t, router, http.MethodGet, "/api/v1/nope", nil)
	if resp.Code != response.CodeNotFound {
		t.Errorf("code = %d, want %d", resp.Code, response.CodeNotFound)
	}
}

func TestTopupWebhookFlow(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/account/start", gin.H{"tg_id": 6001, "username": "flow"})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("start = %+v", resp)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/topup/create", gin.H{
		"tg_id": 6001, "method": "card", "package": "card_100",
	})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("topup create = %+v", resp)
	}
	data := resp.Data.(map[string]interface{})
	orderID, _ := data["order_id"].(string)
	if orderID == "" {
		t.Fatalf("no order id in %+v", data)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/payments/card/webhook", gin.H{"order_id": orderID})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("webhook = %+v", resp)
	}
	if confirmed, _ := resp.Data.(map[string]interface{})["confirmed"].(bool); !confirmed {
		t.Fatalf("first delivery not confirmed: %+v", resp.Data)
	}

	// Redelivery is acknowledged with the same no-op shape an unknown
	// order gets, and credits nothing.
	replay := doJSON(t, router, http.MethodPost, "/api/v1/payments/card/webhook", gin.H{"order_id": orderID})
	unknown := doJSON(t, router, http.MethodPost, "/api/v1/payments/card/webhook", gin.H{"order_id": "ORD-0000000000"})
	for name, r := range map[string]response.Response{"replay": replay, "unknown": unknown} {
		if r.Code != response.CodeSuccess {
			t.Fatalf("%s delivery = %+v, want success no-op", name, r)
		}
		if confirmed, ok := r.Data.(map[string]interface{})["confirmed"].(bool); !ok || confirmed {
			t.Errorf("%s delivery data = %+v, want confirmed=false", name, r.Data)
		}
	}

	resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/account/balance?tg_id=%d", 6001), nil)
	if resp.Code != response.CodeSuccess {
		t.Fatalf("balance = %+v", resp)
	}
	account := resp.Data.(map[string]interface{})
	if diamonds, _ := account["diamonds"].(float64); diamonds != 100 {
		t.Errorf("diamonds = %v, want 100", account["diamonds"])
	}
}

func TestWebhookUnknownOrder(t *testing.T) {
	router := newTestRouter(t)
	resp := doJSON(t, router, http.MethodPost, "/api/v1/payments/card/webhook", gin.H{"order_id": "ORD-0000000000"})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("unknown order = %+v, want success no-op", resp)
	}
	if confirmed, ok := resp.Data.(map[string]interface{})["confirmed"].(bool); !ok || confirmed {
		t.Errorf("data = %+v, want confirmed=false", resp.Data)
	}
}

func TestGenerationInsufficientBalance(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/account/start", gin.H{"tg_id": 6002, "username": "broke"})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/generations", gin.H{
		"tg_id": 6002, "kind": "text2img", "prompt": "anything",
	})
	if resp.Code != response.CodeInsufficientBalance {
		t.Errorf("code = %d, want %d", resp.Code, response.CodeInsufficientBalance)
	}
}

func TestAdminAdjustEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/account/start", gin.H{"tg_id": 6003, "username": "adjusted"})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/admin/adjust", gin.H{
		"admin_id": 1, "tg_id": 6003, "diamonds": 25,
	})
	if resp.Code != response.CodeSuccess {
		t.Fatalf("adjust = %+v", resp)
	}

	resp = doJSON(t, router, http.MethodGet, "/api/v1/account/balance?tg_id=6003", nil)
	account := resp.Data.(map[string]interface{})
	if diamonds, _ := account["diamonds"].(float64); diamonds != 25 {
		t.Errorf("diamonds = %v, want 25", account["diamonds"])
	}

	// Over-debit is rejected with the insufficient-balance code.
	resp = doJSON(t, router, http.MethodPost, "/api/v1/admin/adjust", gin.H{
		"admin_id": 1, "tg_id": 6003, "diamonds": -100,
	})
	if resp.Code != response.CodeInsufficientBalance {
		t.Errorf("over-debit code = %d, want %d", resp.Code, response.CodeInsufficientBalance)
	}

	// The committed adjustment shows up in the audit log export; the
	// rejected one does not.
	resp = doJSON(t, router, http.MethodGet, "/api/v1/admin/logs", nil)
	if resp.Code != response.CodeSuccess {
		t.Fatalf("admin logs = %+v", resp)
	}
	logs, _ := resp.Data.(map[string]interface{})["logs"].([]interface{})
	if len(logs) != 1 {
		t.Fatalf("log entries = %d, want 1", len(logs))
	}
	entry := logs[0].(map[string]interface{})
	if entry["action"] != "admin_adjust" {
		t.Errorf("log action = %v, want admin_adjust", entry["action"])
	}
}
