package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	email := flag.String("email", "manager@crud.com", "staff account used to place orders")
	password := flag.String("password", "password123", "staff password")
	productID := flag.Int("product", 1, "product id")
	customerID := flag.Int("customer", 3, "customer id for the orders")

	// 超卖测试参数：200 个请求并发抢库存
	nOrders := flag.Int("orders", 200, "concurrent orders")
	concurrency := flag.Int("c", 50, "max concurrency")
	burst := flag.Int("burst", 0, "extra same-token requests to probe the rate limiter (0 = skip)")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	token, err := login(client, *baseURL, *email, *password)
	if err != nil {
		panic(fmt.Sprintf("login failed: %v", err))
	}
	fmt.Println("login ok")

	before, err := getStock(client, *baseURL, token, *productID)
	if err != nil {
		panic(fmt.Sprintf("stock check failed: %v", err))
	}
	fmt.Printf("start oversell test: product=%d stock=%d orders=%d concurrency=%d\n", *productID, before, *nOrders, *concurrency)

	results := runOrders(client, *baseURL, token, *productID, *customerID, *nOrders, *concurrency)
	printSummary("oversell", results)

	after, err := getStock(client, *baseURL, token, *productID)
	if err != nil {
		fmt.Println("stock check err:", err)
		return
	}
	placed := countStatus(results, http.StatusCreated)
	fmt.Printf("stock before=%d after=%d placed=%d\n", before, after, placed)
	switch {
	case after < 0:
		fmt.Println("FAIL: negative stock")
	case before-placed != after:
		fmt.Println("FAIL: stock does not match placed orders")
	default:
		fmt.Println("OK: no oversell")
	}

	if *burst > 0 {
		// 同一 token 连续请求，配置了 Redis 时应出现 429
		fmt.Printf("\nstart rate limit test: same token, %d requests\n", *burst)
		printSummary("rate_limit", runOrders(client, *baseURL, token, *productID, *customerID, *burst, *burst))
	}
}

func runOrders(client *http.Client, baseURL, token string, productID, customerID, total, concurrency int) []Result {
	type item struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	type req struct {
		CustomerID      int    `json:"customer_id"`
		Items           []item `json:"items"`
		PaymentMethod   string `json:"payment_method"`
		ShippingAddress string `json:"shipping_address"`
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			body := req{
				CustomerID:      customerID,
				Items:           []item{{ProductID: productID, Quantity: 1}},
				PaymentMethod:   "cash",
				ShippingAddress: "Load Test Street 1, Nairobi",
			}
			results[idx] = do(client, http.MethodPost, baseURL+"/api/orders", token, body)
		}(i)
	}

	wg.Wait()
	return results
}

func do(client *http.Client, method, url, token string, body any) Result {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	httpReq, _ := http.NewRequest(method, url, r)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(b)}
}

func countStatus(results []Result, status int) int {
	n := 0
	for _, r := range results {
		if r.Err == nil && r.Status == status {
			n++
		}
	}
	return n
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 201, 400, 401, 404, 409, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

func decode(res Result, out any) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Status >= 300 {
		return fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var env envelope
	if err := json.Unmarshal([]byte(res.Body), &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}

func login(client *http.Client, baseURL, email, password string) (string, error) {
	res := do(client, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	var out struct {
		Token string `json:"token"`
	}
	if err := decode(res, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// getStock 读取商品当前库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL, token string, productID int) (int, error) {
	res := do(client, http.MethodGet, fmt.Sprintf("%s/api/products/%d", baseURL, productID), token, nil)
	var out struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(res, &out); err != nil {
		return 0, err
	}
	return out.Quantity, nil
}
