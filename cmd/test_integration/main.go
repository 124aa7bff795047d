package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	// A square with one crossing diagonal pair and a stray spur.
	drawing := map[string]any{
		"name": fmt.Sprintf("smoke-%d", time.Now().Unix()),
		"entities": []map[string]any{
			{"handle": "top", "kind": "line", "vertices": []map[string]float64{{"x": 0, "y": 10}, {"x": 10, "y": 10}}},
			{"handle": "right", "kind": "line", "vertices": []map[string]float64{{"x": 10, "y": 10}, {"x": 10, "y": 0}}},
			{"handle": "bottom", "kind": "line", "vertices": []map[string]float64{{"x": 10, "y": 0}, {"x": 0, "y": 0}}},
			{"handle": "left", "kind": "line", "vertices": []map[string]float64{{"x": 0, "y": 0}, {"x": 0, "y": 10}}},
			{"handle": "d1", "kind": "line", "vertices": []map[string]float64{{"x": 0, "y": 0}, {"x": 10, "y": 10}}},
			{"handle": "d2", "kind": "line", "vertices": []map[string]float64{{"x": 0, "y": 10}, {"x": 10, "y": 0}}},
			{"handle": "spur", "kind": "line", "vertices": []map[string]float64{{"x": 10, "y": 5}, {"x": 12, "y": 5}}},
		},
	}

	steps := []struct {
		name     string
		method   string
		endpoint string
		payload  any
	}{
		{"Import drawing", "POST", "/drawings", drawing},
		{"Check crossings", "POST", "/check", map[string]string{"action": "BreakCrossing"}},
		{"Check and fix crossings", "POST", "/check-and-fix", map[string]string{"action": "BreakCrossing"}},
		{"Clean with default sequence", "POST", "/clean", nil},
		{"Extract polygons", "POST", "/polygons", map[string]any{"create": true, "layer": "faces"}},
		{"Export drawing", "GET", "/drawings", nil},
	}

	for i, s := range steps {
		fmt.Printf("%d. %s...\n", i+1, s.name)
		if !sendRequest(s.method, s.endpoint, s.payload) {
			fmt.Printf("FAILED: %s\n", s.name)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", s.name)
	}
}

func sendRequest(method, endpoint string, payload any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response Status: %s\n", resp.Status)
	fmt.Printf("Response Body: %s\n", string(respBody))

	return resp.StatusCode == http.StatusOK
}
