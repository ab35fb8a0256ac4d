package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// verify_inventory exercises a running API: it creates an item, transfers part of it,
// checks both locations and confirms an oversized transfer is refused.
func main() {
	base := flag.String("url", "http://127.0.0.1:8080", "API base URL")
	email := flag.String("email", "admin@sunrise.local", "admin email")
	password := flag.String("password", "changeme123", "admin password")
	flag.Parse()

	rc := retryablehttp.NewClient()
	rc.RetryMax = 5
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	c := &client{base: *base, http: rc.StandardClient()}

	if err := verify(c, *email, *password); err != nil {
		fmt.Println("FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("Inventory verification passed")
}

func verify(c *client, email, password string) error {
	var login struct {
		Token string `json:"token"`
	}
	if _, err := c.do("POST", "/api/auth/login", map[string]string{"email": email, "password": password}, &login); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = login.Token

	var unit struct {
		ID string `json:"id"`
	}
	sym := fmt.Sprintf("v%d", time.Now().Unix())
	if _, err := c.do("POST", "/api/inventory/units", map[string]any{"name": "Verify unit", "symbol": sym}, &unit); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}

	type item struct {
		ID       string  `json:"id"`
		Location string  `json:"location"`
		Quantity float64 `json:"quantity"`
	}
	var src item
	sku := "VER-" + sym
	if _, err := c.do("POST", "/api/inventory/items", map[string]any{
		"sku": sku, "name": "Verification gauze", "unit_id": unit.ID, "location": "main", "quantity": 100,
	}, &src); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	fmt.Printf("Created item %s (qty 100 at main)\n", src.ID)

	var transfer struct {
		TargetItemID string `json:"target_item_id"`
	}
	if _, err := c.do("POST", "/api/inventory/transfers", map[string]any{
		"item_id": src.ID, "to_location": "ward-b", "quantity": 30,
	}, &transfer); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	var after, dest item
	if _, err := c.do("GET", "/api/inventory/items/"+src.ID, nil, &after); err != nil {
		return err
	}
	if _, err := c.do("GET", "/api/inventory/items/"+transfer.TargetItemID, nil, &dest); err != nil {
		return err
	}
	if after.Quantity != 70 || dest.Quantity != 30 || dest.Location != "ward-b" {
		return fmt.Errorf("unexpected quantities: main=%v %s=%v", after.Quantity, dest.Location, dest.Quantity)
	}
	fmt.Println("Transfer verified (main 70, ward-b 30)")

	status, err := c.do("POST", "/api/inventory/transfers", map[string]any{
		"item_id": src.ID, "to_location": "ward-b", "quantity": 1000,
	}, nil)
	if status != http.StatusConflict {
		return fmt.Errorf("oversized transfer: want 409, got %d (%v)", status, err)
	}
	fmt.Println("Oversized transfer refused")
	return nil
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) do(method, path string, body any, out any) (int, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
