package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCollection = "collection"
	FieldCount      = "count"
	FieldPath       = "path"
	FieldBackend    = "backend"
	FieldCommand    = "command"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentPayments = "payments"
	ComponentProjects = "projects"
	ComponentPrefs    = "preferences"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
)

// Operations defines standard operation names
const (
	OpStartup  = "startup"
	OpShutdown = "shutdown"
	OpExport   = "export"
	OpMigrate  = "migrate"
)
