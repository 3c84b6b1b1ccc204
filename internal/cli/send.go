package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/north-relay/pkg/httpclient"
	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

// outcomeView is the printed form of a send result.
type outcomeView struct {
	Kind     string `json:"kind"`
	Code     int    `json:"code,omitempty"`
	Attempts int    `json:"attempts"`
	Body     string `json:"body,omitempty"`
	Message  string `json:"message,omitempty"`
}

func newSendCmd(a *app) *cobra.Command {
	var (
		method  string
		path    string
		headers []string
		data    string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one request and print the classified outcome",
		Example: `  northctl send --path /fledge/audit -d '{"source":"SRVRG"}'
  northctl send -X PUT --path /api/v1/items -H "X-Trace: 1" -d @item.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			payload, err := readData(data, cmd.InOrStdin())
			if err != nil {
				return err
			}

			s, err := a.newSender()
			if err != nil {
				return err
			}
			defer s.Close()

			out, sendErr := s.Send(cmd.Context(), sender.Request{
				Method:  strings.ToUpper(method),
				Path:    path,
				Headers: hdrs,
				Payload: payload,
			})
			if err := printJSON(cmd.OutOrStdout(), outcomeView{
				Kind:     out.Kind.String(),
				Code:     out.Code,
				Attempts: out.Attempts,
				Body:     out.Body,
				Message:  out.Message,
			}); err != nil {
				return err
			}
			return sendErr
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodPost, "HTTP method")
	cmd.Flags().StringVar(&path, "path", "", "request path, optionally with a query string")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, `extra header "Key: Value" (repeatable)`)
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body, @file to read a file, @- for stdin")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// parseHeaders turns "Key: Value" strings into an ordered header list. Duplicates are kept.
func parseHeaders(raw []string) (httpclient.Headers, error) {
	var out httpclient.Headers
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Key: Value\"", h)
		}
		out.Add(key, strings.TrimSpace(value))
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
