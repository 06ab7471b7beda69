package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type adminCall struct {
	Method string
	Path   string
	Body   []byte
}

// buildCall maps a CLI verb to a request against the planner admin API.
func buildCall(verb, baseID, center string) (adminCall, error) {
	needBase := func() error {
		if baseID == "" {
			return fmt.Errorf("%s: missing -base", verb)
		}
		return nil
	}
	switch verb {
	case "bases":
		return adminCall{Method: http.MethodGet, Path: "/api/bases"}, nil
	case "base":
		if err := needBase(); err != nil {
			return adminCall{}, err
		}
		return adminCall{Method: http.MethodGet, Path: "/api/bases/" + baseID}, nil
	case "center":
		if err := needBase(); err != nil {
			return adminCall{}, err
		}
		if center == "" || center == "clear" {
			return adminCall{Method: http.MethodDelete, Path: "/api/bases/" + baseID + "/center"}, nil
		}
		x, y, err := parseXY(center)
		if err != nil {
			return adminCall{}, err
		}
		body, _ := json.Marshal(map[string]int{"x": x, "y": y})
		return adminCall{Method: http.MethodPut, Path: "/api/bases/" + baseID + "/center", Body: body}, nil
	case "reconcile":
		if err := needBase(); err != nil {
			return adminCall{}, err
		}
		return adminCall{Method: http.MethodPost, Path: "/api/bases/" + baseID + "/reconcile"}, nil
	case "snapshot":
		return adminCall{Method: http.MethodPost, Path: "/api/snapshot"}, nil
	}
	return adminCall{}, fmt.Errorf("unknown command %q", verb)
}

func parseXY(s string) (int, int, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected x,y")
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func httpCmd(verb string, args []string) {
	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "planner base url")
	baseID := fs.String("base", "", "base id")
	center := fs.String("at", "", "center as x,y (center only; empty or \"clear\" clears it)")
	_ = fs.Parse(args)

	call, err := buildCall(verb, strings.TrimSpace(*baseID), strings.TrimSpace(*center))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + call.Path
	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}
	req, _ := http.NewRequest(call.Method, u, body)
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
