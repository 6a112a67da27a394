package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldState     = "state"
	FieldCommand   = "command"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldTxType    = "transaction_type"
	FieldCategory  = "category"
	FieldChartPath = "chart_path"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentBot      = "bot"
	ComponentStorage  = "storage"
	ComponentCurrency = "currency"
	ComponentReport   = "report"
)
