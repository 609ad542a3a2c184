package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ShuttingDown       string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	Usage              string

	// Rule catalogs
	CatalogLoaded     string
	CatalogLoadFailed string

	// Seeding
	SeedImported string
	SeedSkipped  string
	SeedFailed   string

	// Validation
	ValidationComplete string
	EvaluationComplete string
	ValidationFailed   string
	TradeRouted        string

	// Reconciliation
	ReconStarted     string
	ReconComplete    string
	ReconFailed      string
	UnknownKind      string
	DiscrepancyFound string
	TradeNarrative   string
	ActionsRequired  string

	// Persistence
	VerdictsSaved string
	SaveFailed    string

	// Monitoring
	MonitorStarted string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting trade reconciliation engine...",
	ConfigLoaded:       "Config loaded (workers: %d, recon interval: %v)",
	UsingDBPath:        "Using DB path: %s",
	ShuttingDown:       "Shutting down gracefully...",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	Usage:              "usage: trade-recon validate|evaluate <equity|forex> | reconcile <kind> | serve",

	// Rule catalogs
	CatalogLoaded:     "Rule catalog loaded: %s (%s)",
	CatalogLoadFailed: "Failed to load rule catalog: %v",

	// Seeding
	SeedImported: "Seeded %d records from %s",
	SeedSkipped:  "Seed file %s not found, skipping",
	SeedFailed:   "Failed to seed %s: %v",

	// Validation
	ValidationComplete: "Validated %d %s trades: %d validated, %d failed, %d pending (%.2f%% success)",
	EvaluationComplete: "Evaluated %d %s trades: %d validated, %d failed, %d pending (%.2f%% success)",
	ValidationFailed:   "Validation run failed: %v",
	TradeRouted:        "%s failed, assigned to %s: %s",

	// Reconciliation
	ReconStarted:     "Reconciliation service started",
	ReconComplete:    "Reconciled %s: %d pairs, %d with discrepancies",
	ReconFailed:      "Reconciliation failed: %v",
	UnknownKind:      "Unknown pairing kind: %s",
	DiscrepancyFound: "%s %s: %s (%s=%v, %s=%v) -> %s",
	TradeNarrative:   "%s %s: %s",
	ActionsRequired:  "%s actions: %s",

	// Persistence
	VerdictsSaved: "Saved %d results (run %s)",
	SaveFailed:    "Failed to save results: %v",

	// Monitoring
	MonitorStarted: "Batch monitor started (alert threshold: %.0f%%)",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "正在啟動交易對帳引擎...",
	ConfigLoaded:       "設定已載入（工作者：%d，對帳間隔：%v）",
	UsingDBPath:        "使用資料庫路徑：%s",
	ShuttingDown:       "正在優雅關閉...",
	ConfigLoadFailed:   "載入設定失敗：%v",
	DBInitFailed:       "初始化資料庫失敗：%v",
	DBMigrationsFailed: "套用資料庫遷移失敗：%v",
	Usage:              "用法：trade-recon validate|evaluate <equity|forex> | reconcile <kind> | serve",

	// Rule catalogs
	CatalogLoaded:     "規則目錄已載入：%s（%s）",
	CatalogLoadFailed: "載入規則目錄失敗：%v",

	// Seeding
	SeedImported: "已從 %[2]s 匯入 %[1]d 筆紀錄",
	SeedSkipped:  "找不到種子檔 %s，略過",
	SeedFailed:   "匯入 %s 失敗：%v",

	// Validation
	ValidationComplete: "已驗證 %d 筆 %s 交易：%d 通過，%d 失敗，%d 待處理（成功率 %.2f%%）",
	EvaluationComplete: "已評估 %d 筆 %s 交易：%d 通過，%d 失敗，%d 待處理（成功率 %.2f%%）",
	ValidationFailed:   "驗證執行失敗：%v",
	TradeRouted:        "%s 驗證失敗，已指派給 %s：%s",

	// Reconciliation
	ReconStarted:     "對帳服務已啟動",
	ReconComplete:    "已對帳 %s：%d 組配對，%d 組有差異",
	ReconFailed:      "對帳失敗：%v",
	UnknownKind:      "未知的配對類型：%s",
	DiscrepancyFound: "%s %s：%s（%s=%v，%s=%v）-> %s",
	TradeNarrative:   "%s %s：%s",
	ActionsRequired:  "%s 處理建議：%s",

	// Persistence
	VerdictsSaved: "已儲存 %d 筆結果（執行 %s）",
	SaveFailed:    "儲存結果失敗：%v",

	// Monitoring
	MonitorStarted: "批次監控已啟動（警示門檻：%.0f%%）",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
