package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	callURL    string
	callParams string
)

// callCmd is an ad-hoc JSON-RPC client, the local-call convenience the
// teacher's internal/cli/rpc.go provided by invoking its method registry
// directly in-process; ledgerd's registry lives inside the running
// server process instead, so this issues an HTTP request against it.
var callCmd = &cobra.Command{
	Use:   "call <method>",
	Short: "Call a JSON-RPC method against a running ledgerd server",
	Long: `call sends a single JSON-RPC 2.0 request to a running ledgerd server
and prints the response. Params are given as a raw JSON object via --params.

Example:
  ledgerd call get_balance --params '{"account":{"owner":"aa"},"token":"<hex>"}'`,
	Args: cobra.ExactArgs(1),
	Run:  runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callURL, "url", "http://127.0.0.1:8535/rpc", "ledgerd JSON-RPC endpoint")
	callCmd.Flags().StringVar(&callParams, "params", "{}", "JSON object of method params")
}

func runCall(cmd *cobra.Command, args []string) {
	method := args[0]

	if !json.Valid([]byte(callParams)) {
		fmt.Fprintln(os.Stderr, "Error: --params must be valid JSON")
		os.Exit(1)
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  json.RawMessage(callParams),
		"id":      1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := http.Post(callURL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}
