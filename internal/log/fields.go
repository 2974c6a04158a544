package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldMonth         = "month"
	FieldAmountCents   = "amount_cents"
	FieldMember        = "member"
	FieldAlertID       = "alert_id"
	FieldAlertType     = "alert_type"
	FieldGoalPct       = "goal_pct"
	FieldAccountID     = "account_id"
	FieldRowCount      = "row_count"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentTransactions = "transactions"
	ComponentInsights     = "insights"
	ComponentGoals        = "goals"
	ComponentAlerts       = "alerts"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentCache        = "cache"
	ComponentSecurity     = "security"
	ComponentRateLimit    = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpExport   = "export"
	OpEvaluate = "evaluate"
	OpNotify   = "notify"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
