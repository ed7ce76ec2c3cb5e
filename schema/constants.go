package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the persistence backend for trackers and jobs.
	DatabaseBackend string

	// BackendType identifies the kind of data store a BackendRef points at.
	BackendType string

	// Op is a logical operator joining child expressions.
	Op string

	// Condition is the comparison applied by an expression term.
	Condition string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All persistence backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	BoltBackend       DatabaseBackend = "bolt"
	NoneBackend       DatabaseBackend = "none" // in-memory, lost on exit
)

// All data store types supported.
const (
	CSVBackendType     BackendType = "csv"     // raw flat-file store
	ParquetBackendType BackendType = "parquet" // indexed columnar store
)

// Logical operators.
const (
	OpAnd Op = "AND"
	OpOr  Op = "OR"
	OpNot Op = "NOT"
)

// Term conditions.
const (
	CondEquals               Condition = "EQUALS"
	CondContains             Condition = "CONTAINS"
	CondIn                   Condition = "IN"
	CondBetween              Condition = "BETWEEN"
	CondGreaterThan          Condition = "GREATER_THAN"
	CondGreaterThanOrEqualTo Condition = "GREATER_THAN_OR_EQUAL_TO"
	CondLessThan             Condition = "LESS_THAN"
	CondLessThanOrEqualTo    Condition = "LESS_THAN_OR_EQUAL_TO"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid persistence backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	BoltBackend:       {},
	NoneBackend:       {},
}

// ValidBackendTypes lists all valid data store types.
var ValidBackendTypes = map[BackendType]struct{}{
	CSVBackendType:     {},
	ParquetBackendType: {},
}

// ValidConditions lists all term conditions understood by the bundled backends.
var ValidConditions = map[Condition]struct{}{
	CondEquals:               {},
	CondContains:             {},
	CondIn:                   {},
	CondBetween:              {},
	CondGreaterThan:          {},
	CondGreaterThanOrEqualTo: {},
	CondLessThan:             {},
	CondLessThanOrEqualTo:    {},
}
