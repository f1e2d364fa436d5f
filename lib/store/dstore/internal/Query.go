package internal

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTExec QueryType = iota // Execute a readonly command.
	QueryTInfo                  // Retrieve a summary of the database behind the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTExec:
		return "Exec"
	case QueryTInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead.
// The result of QueryTExec is a command.Reply, the result of QueryTInfo a command.Info.
type Query struct {
	Type QueryType // The type of Query to perform.
	Now  int64     // The clock of the querying node.
	Argv [][]byte  // The command (empty for QueryTInfo).
}
