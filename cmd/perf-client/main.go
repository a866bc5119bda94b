package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// PerfResult gathers aggregated metrics for the test run.
// Atomic counters are used to avoid lock‑contention on hot paths.
// LatencySum & P95Latency are in nanoseconds.
//
// P95Latency is maintained via a lightweight reservoir sampler.
type PerfResult struct {
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	LatencySum    int64
	P95Latency    int64
}

const (
	fixedWorkers   = 50
	fixedRPSTarget = 700
	fixedDuration  = 30 * time.Second
	defaultTimeout = 30 * time.Second
	fixedQuota     = 50000

	baseURL = "http://localhost:8080"
	ownerID = "perf-owner"
)

func main() {
	rps := fixedRPSTarget
	duration := fixedDuration
	workers := fixedWorkers

	// ─── HTTP Client & Transport ─────────────────────────────────
	transport := &http.Transport{
		MaxIdleConns:        workers * 4,
		MaxIdleConnsPerHost: workers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}

	// ─── Campaign handling ───────────────────────────────────────
	campaignID, err := createNewCampaign(httpClient, fixedQuota)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create campaign: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ 새 캠페인 생성됨: ID %d (정원 %d명)\n", campaignID, fixedQuota)

	// ─── Banner ──────────────────────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("🚀 Go 고성능 부하 테스트 클라이언트 (uniform)")
	fmt.Println("==========================================")
	fmt.Printf("캠페인 ID  : %d\n", campaignID)
	fmt.Printf("RPS   : %d\n", rps)
	fmt.Printf("테스트 시간: %v\n", duration)
	fmt.Println("==========================================")

	// ─── Rate limiter & context ─────────────────────────────────
	burst := rps / workers
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var result PerfResult
	var wg sync.WaitGroup

	// Each request applies as a distinct influencer so the duplicate
	// guard never fires and every attempt exercises the reservation path.
	var userSeq int64

	// latencyChan collects latencies for P95 estimation.
	latencyChan := make(chan time.Duration, 4096)
	go trackP95(latencyChan, &result)

	// ─── Workers ────────────────────────────────────────────────
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil { // context cancelled → exit
					return
				}
				userID := fmt.Sprintf("perf-user-%d", atomic.AddInt64(&userSeq, 1))
				doRequest(httpClient, campaignID, userID, &result, latencyChan)
			}
		}()
	}

	start := time.Now()
	<-ctx.Done() // wait for duration

	// ─── Cleanup ────────────────────────────────────────────────
	wg.Wait()
	close(latencyChan)

	totalDur := time.Since(start)

	// ─── Report ─────────────────────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("📊 성능 테스트 결과")
	fmt.Println("==========================================")
	fmt.Printf("테스트 시간        : %.2f초\n", totalDur.Seconds())
	fmt.Printf("총 요청 수         : %d\n", result.TotalRequests)
	fmt.Printf("성공한 요청        : %d\n", result.SuccessCount)
	fmt.Printf("실패한 요청        : %d\n", result.ErrorCount)

	actualRPS := float64(result.SuccessCount) / totalDur.Seconds()
	successRate := float64(result.SuccessCount) / float64(result.TotalRequests) * 100

	var avgLatency time.Duration
	if result.SuccessCount > 0 {
		avgLatency = time.Duration(result.LatencySum / result.SuccessCount)
	}

	fmt.Printf("실제 RPS           : %.2f\n", actualRPS)
	fmt.Printf("성공률             : %.2f%%\n", successRate)
	fmt.Printf("평균 레이턴시      : %v\n", avgLatency)
	fmt.Printf("P95 레이턴시       : %v\n", time.Duration(result.P95Latency))

	fmt.Printf("⚠️  현재 성능: %.2f RPS\n", actualRPS)

	fmt.Println("==========================================")

	// ─── Data Consistency Check ─────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("🔍 데이터 정합성 검증")
	fmt.Println("==========================================")

	if err := verifyDataConsistency(httpClient, campaignID, result.SuccessCount); err != nil {
		fmt.Printf("❌ 정합성 검증 실패: %v\n", err)
	} else {
		fmt.Println("✅ 데이터 정합성 확인 완료")
	}
	fmt.Println("==========================================")
}

func postJSON(httpClient *http.Client, path, userID, role string, body, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-User-Role", role)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// createNewCampaign seeds a store and an active campaign sized for the run.
func createNewCampaign(httpClient *http.Client, quota int) (int64, error) {
	var store struct {
		ID int64 `json:"id"`
	}
	err := postJSON(httpClient, "/stores", ownerID, "owner", map[string]any{
		"name":     "부하테스트 카페",
		"category": "cafe",
		"address":  "서울시 강남구",
		"lat":      37.4979,
		"lng":      127.0276,
	}, &store)
	if err != nil {
		return 0, fmt.Errorf("create store failed: %w", err)
	}

	now := time.Now().UTC()
	var campaign struct {
		ID int64 `json:"id"`
	}
	err = postJSON(httpClient, "/campaigns", ownerID, "owner", map[string]any{
		"store_id":     store.ID,
		"name":         "부하테스트 체험단",
		"benefit":      "아메리카노 2잔",
		"total_quota":  quota,
		"required_sns": []string{"블로그"},
		"start_date":   now.Format(time.RFC3339),
		"end_date":     now.Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"deadline":     now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}, &campaign)
	if err != nil {
		return 0, fmt.Errorf("create campaign failed: %w", err)
	}
	return campaign.ID, nil
}

// doRequest submits a single application and collects metrics.
func doRequest(httpClient *http.Client, campaignID int64, userID string, result *PerfResult, latencyChan chan<- time.Duration) {
	start := time.Now()
	atomic.AddInt64(&result.TotalRequests, 1)

	var app struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	err := postJSON(httpClient, fmt.Sprintf("/campaigns/%d/applications", campaignID), userID, "influencer", nil, &app)
	latency := time.Since(start)

	if err != nil || app.ID == 0 {
		atomic.AddInt64(&result.ErrorCount, 1)
		return
	}
	atomic.AddInt64(&result.SuccessCount, 1)
	atomic.AddInt64(&result.LatencySum, latency.Nanoseconds())
	select {
	case latencyChan <- latency:
	default:
	}
}

// trackP95 maintains a best‑effort rolling P95 latency estimation.
func trackP95(latencies <-chan time.Duration, result *PerfResult) {
	const size = 1000
	buf := make([]int64, 0, size)

	for lat := range latencies {
		if len(buf) < size {
			buf = append(buf, lat.Nanoseconds())
		} else {
			// Replace random element (simple reservoir sampling)
			if idx := time.Now().UnixNano() % int64(size); idx < int64(size/10) {
				buf[idx] = lat.Nanoseconds()
			}
		}

		// Update P95 periodically
		if len(buf) >= 100 && len(buf)%100 == 0 {
			copyBuf := make([]int64, len(buf))
			copy(copyBuf, buf)
			quickSort(copyBuf)
			p95Index := int(float64(len(copyBuf)) * 0.95)
			if p95Index >= len(copyBuf) {
				p95Index = len(copyBuf) - 1
			}
			atomic.StoreInt64(&result.P95Latency, copyBuf[p95Index])
		}
	}
}

// quickSort sorts the array in ascending order
func quickSort(arr []int64) {
	if len(arr) < 2 {
		return
	}

	left, right := 0, len(arr)-1
	pivot := len(arr) / 2

	arr[pivot], arr[right] = arr[right], arr[pivot]

	for i := range arr {
		if arr[i] < arr[right] {
			arr[left], arr[i] = arr[i], arr[left]
			left++
		}
	}

	arr[left], arr[right] = arr[right], arr[left]

	quickSort(arr[:left])
	quickSort(arr[left+1:])
}

// verifyDataConsistency checks that the stored application count matches
// the number of accepted requests.
func verifyDataConsistency(httpClient *http.Client, campaignID int64, expectedApplied int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/campaigns/%d/applications", baseURL, campaignID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-Id", ownerID)
	req.Header.Set("X-User-Role", "owner")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}

	var apps []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apps); err != nil {
		return err
	}

	actualApplied := int64(len(apps))

	fmt.Printf("캠페인 ID          : %d\n", campaignID)
	fmt.Printf("신청 수 (DB)       : %d\n", actualApplied)
	fmt.Printf("신청 수 (테스트)    : %d\n", expectedApplied)

	if actualApplied != expectedApplied {
		return fmt.Errorf("데이터 불일치: DB=%d, 테스트=%d, 차이=%d",
			actualApplied, expectedApplied, actualApplied-expectedApplied)
	}

	if actualApplied > fixedQuota {
		return fmt.Errorf("정원 초과 발생: 신청=%d > 정원=%d", actualApplied, fixedQuota)
	}

	return nil
}
