package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/outletmesh/outletmesh/internal/llm"
)

const (
	toolListTables        = "sql_db_list_tables"
	toolGetSchema         = "sql_db_schema"
	toolRunQuery          = "db_query_tool"
	toolSubmitFinalAnswer = "SubmitFinalAnswer"
)

var (
	getSchemaTool = llm.Tool{
		Name:        toolGetSchema,
		Description: "Get the schema and sample rows for the given tables.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"table_names":{"type":"string","description":"Comma-separated list of table names"}},"required":["table_names"]}`),
	}

	runQueryTool = llm.Tool{
		Name:        toolRunQuery,
		Description: "Executes an SQL query and returns formatted results.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The SQL query to execute"}},"required":["query"]}`),
	}

	submitFinalAnswerTool = llm.Tool{
		Name:        toolSubmitFinalAnswer,
		Description: "Submit the final answer to the user.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"final_answer":{"type":"string","description":"The final answer to the user"}},"required":["final_answer"]}`),
	}
)

// wrongToolMessage is synthesized for generator tool calls that bypass the
// submission protocol.
func wrongToolMessage(name string) string {
	return fmt.Sprintf("Error: The wrong tool was called: %s. Please fix your mistakes. Remember to only call SubmitFinalAnswer to submit the final answer. Generated queries should be outputted WITHOUT a tool call.", name)
}

// toolErrorMessage is the fallback turn for tool resolution failures.
func toolErrorMessage(err error) string {
	return fmt.Sprintf("Error: %s\n please fix your mistakes.", err)
}

// isDiagnostic is the single place the error-prefix control signal is
// recognized.
func isDiagnostic(content string) bool {
	return len(content) >= 6 && content[:6] == "Error:"
}

type schemaArgs struct {
	TableNames string `json:"table_names"`
}

type runQueryArgs struct {
	Query string `json:"query"`
}

type finalAnswerArgs struct {
	FinalAnswer string `json:"final_answer"`
}
