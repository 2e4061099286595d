// Command devflow is a small staff client for the back office: it lists a
// collection with the actions each record allows, or submits one transition.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"backoffice/internal/auth"
	"backoffice/pkg/config"
)

type recordView struct {
	Record struct {
		ID            string  `json:"id"`
		Status        string  `json:"status"`
		PendingStatus *string `json:"pendingStatus"`
		PaymentStatus string  `json:"paymentStatus"`
		PaymentDrift  bool    `json:"paymentDrift"`
		Title         string  `json:"title"`
		Guest         struct {
			Name string `json:"name"`
		} `json:"guest"`
		Room struct {
			Number string `json:"number"`
		} `json:"room"`
	} `json:"record"`
	Actions  []string `json:"actions"`
	Terminal bool     `json:"terminal"`
}

func main() {
	var (
		baseURL  = flag.String("url", "", "back office base url (defaults to http://localhost<HTTP_ADDR>)")
		kind     = flag.String("kind", "booking", "booking or task")
		id       = flag.String("id", "", "record id; omit to list the collection")
		action   = flag.String("action", "", "transition to submit for -id")
		operator = flag.String("operator", "devflow", "operator subject")
		role     = flag.String("role", "manager", "operator role used when minting a session token")
		refresh  = flag.Bool("refresh", false, "refetch from the store before listing")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}
	collection := "/v1/bookings"
	if *kind == "task" {
		collection = "/v1/tasks"
	}

	headers, err := operatorHeaders(cfg, *operator, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "operator session: %v\n", err)
		os.Exit(2)
	}
	c := &http.Client{Timeout: 15 * time.Second}

	switch {
	case *id != "" && *action != "":
		body, _ := json.Marshal(map[string]string{"action": *action})
		status, resp := call(c, http.MethodPost, *baseURL+collection+"/"+*id+"/transitions", body, headers)
		fmt.Printf("status=%d\n%s\n", status, resp)
		if status != http.StatusOK {
			os.Exit(1)
		}
	case *id != "":
		status, resp := call(c, http.MethodGet, *baseURL+collection+"/"+*id, nil, headers)
		fmt.Printf("status=%d\n%s\n", status, resp)
	default:
		path := collection + "/"
		method := http.MethodGet
		if *refresh {
			path, method = collection+"/refresh", http.MethodPost
		}
		status, resp := call(c, method, *baseURL+path, nil, headers)
		if status != http.StatusOK {
			fmt.Fprintf(os.Stderr, "status=%d\n%s\n", status, resp)
			os.Exit(1)
		}
		var list struct {
			Items []recordView `json:"items"`
		}
		if err := json.Unmarshal(resp, &list); err != nil {
			fmt.Fprintf(os.Stderr, "decode: %v\n", err)
			os.Exit(1)
		}
		printTable(list.Items)
	}
}

func operatorHeaders(cfg config.Config, operator, role string) (map[string]string, error) {
	if cfg.Operator.JWTSecret == "" {
		// Dev servers accept X-Operator instead of a token.
		return map[string]string{"X-Operator": operator}, nil
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	tok, err := auth.IssueOperatorToken(operator, r, cfg.Operator.JWTAudience, cfg.Operator.JWTSecret, 15*time.Minute, time.Now())
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + tok}, nil
}

func call(c *http.Client, method, url string, body []byte, headers map[string]string) (int, []byte) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, url, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func printTable(items []recordView) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHO/WHAT\tROOM\tSTATUS\tPAYMENT\tACTIONS")
	for _, it := range items {
		label := it.Record.Guest.Name
		if it.Record.Title != "" {
			label = it.Record.Title
		}
		st := it.Record.Status
		if it.Record.PendingStatus != nil {
			st += " -> " + *it.Record.PendingStatus
		}
		if it.Terminal {
			st += " (final)"
		}
		pay := it.Record.PaymentStatus
		if it.Record.PaymentDrift {
			pay += " (drift)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.Record.ID, label, it.Record.Room.Number, st, pay, strings.Join(it.Actions, ","))
	}
	_ = tw.Flush()
}

func defaultBaseURL(httpAddr string) string {
	if httpAddr == "" {
		httpAddr = ":8081"
	}
	if strings.HasPrefix(httpAddr, ":") {
		return "http://localhost" + httpAddr
	}
	return "http://" + httpAddr
}
