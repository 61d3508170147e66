package main

import (
	"errors"
	"fmt"
	"math/rand"
	"roverchat/internal/models"
	"roverchat/internal/realtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	socketURL    = "ws://127.0.0.1:3000/socket"
	numWorkers   = 50
	testDuration = 10 * time.Second
	ackTimeout   = 5 * time.Second
	voteAckWait  = 200 * time.Millisecond
)

var rovers = []string{"curiosity", "perseverance", "opportunity", "spirit"}

var dialer = &websocket.Dialer{HandshakeTimeout: 2 * time.Second}

type result struct {
	op      string
	latency time.Duration
	err     bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

// client is one websocket connection. Acks are matched to pending sends by ackId.
type client struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	nextAck   uint64

	mu      sync.Mutex
	pending map[uint64]chan models.Ack
	last    atomic.Int64
	chats   *atomic.Int64
	done    chan struct{}
}

func main() {
	fmt.Println("=== RoverChat Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		conn, _, err := dialer.Dial(socketURL, nil)
		if err == nil {
			_ = conn.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	var received atomic.Int64

	fmt.Println("\n--- Phase 1: Chat fan-out (every client sends and receives) ---")
	runPhase(testDuration, &received, func(rng *rand.Rand, c *client) result {
		return doChat(rng, c)
	})
	fmt.Printf("  Broadcast frames received: %d\n", received.Swap(0))

	fmt.Println("\n--- Phase 2: Mixed load (80% chat, 20% votes) ---")
	runPhase(testDuration, &received, func(rng *rand.Rand, c *client) result {
		if rng.Float64() < 0.8 {
			return doChat(rng, c)
		}
		return doVote(rng, c)
	})
	fmt.Printf("  Broadcast frames received: %d\n", received.Swap(0))

	fmt.Println("\n--- Phase 3: Reconnect churn (replay from last seen offset) ---")
	runChurn(testDuration)
}

func connect(query string, chats *atomic.Int64) (*client, error) {
	conn, _, err := dialer.Dial(socketURL+query, nil)
	if err != nil {
		return nil, err
	}
	c := &client{
		conn:    conn,
		pending: make(map[uint64]chan models.Ack),
		chats:   chats,
		done:    make(chan struct{}),
	}

	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	env, err := realtime.DecodeEnvelope(raw)
	if err != nil || env.Event != realtime.EventSession {
		_ = conn.Close()
		return nil, fmt.Errorf("expected session frame, got %q", raw)
	}
	var session struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(env.Data, &session)
	c.sessionID = session.SessionID
	_ = conn.SetReadDeadline(time.Time{})

	go c.read()
	return c, nil
}

func (c *client) read() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := realtime.DecodeEnvelope(raw)
		if err != nil {
			continue
		}
		switch env.Event {
		case realtime.EventAck:
			var ack models.Ack
			_ = json.Unmarshal(env.Data, &ack)
			c.mu.Lock()
			ch, ok := c.pending[env.AckID]
			delete(c.pending, env.AckID)
			c.mu.Unlock()
			if ok {
				ch <- ack
			}
		case realtime.EventChatMessage:
			var msg struct {
				ServerOffset int64 `json:"serverOffset"`
			}
			_ = json.Unmarshal(env.Data, &msg)
			c.last.Store(msg.ServerOffset)
			if c.chats != nil {
				c.chats.Add(1)
			}
		}
	}
}

var errNoReply = errors.New("no ack")

func (c *client) request(event string, data interface{}, timeout time.Duration) (models.Ack, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return models.Ack{}, err
	}

	ch := make(chan models.Ack, 1)
	c.writeMu.Lock()
	c.nextAck++
	id := c.nextAck
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	frame, _ := json.Marshal(realtime.Envelope{Event: event, AckID: id, Data: payload})
	err = c.conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		return models.Ack{}, err
	}

	select {
	case ack := <-ch:
		return ack, nil
	case <-c.done:
		return models.Ack{}, errors.New("connection closed")
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return models.Ack{}, errNoReply
	}
}

func (c *client) close() {
	_ = c.conn.Close()
	<-c.done
}

func runPhase(duration time.Duration, received *atomic.Int64, workFn func(rng *rand.Rand, c *client) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			c, err := connect("", received)
			if err != nil {
				results <- result{"connect", 0, true}
				return
			}
			defer c.close()
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(rng, c)
				}
			}
		}(rand.Int63() + int64(i))
	}

	collect(results, duration, stop, &wg)
}

func runChurn(duration time.Duration) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var offset int64
			for {
				select {
				case <-stop:
					return
				default:
				}
				start := time.Now()
				c, err := connect(fmt.Sprintf("?serverOffset=%d", offset), nil)
				if err != nil {
					results <- result{"reconnect", time.Since(start), true}
					continue
				}
				results <- result{"reconnect", time.Since(start), false}
				results <- doChat(rng, c)
				time.Sleep(time.Duration(rng.Intn(50)) * time.Millisecond)
				offset = c.last.Load()
				c.close()
			}
		}(rand.Int63() + int64(i))
	}

	collect(results, duration, stop, &wg)
}

func collect(results chan result, duration time.Duration, stop chan struct{}, wg *sync.WaitGroup) {
	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.op]
			if !ok {
				s = &stats{}
				allResults[r.op] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	ops := make([]string, 0, len(allResults))
	for op := range allResults {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Printf("\n  %-16s %8s %6s %10s %10s %10s %10s\n",
		"Operation", "Ops", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 82))

	for _, op := range ops {
		s := allResults[op]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-16s %8d %6d %10s %10s %10s %10s\n",
			op, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		return
	}
	fmt.Println("  " + strings.Repeat("-", 82))
	fmt.Printf("  Total: %d ops | Errors: %d (%.1f%%) | OPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, float64(totalOps)/duration.Seconds())
}

func doChat(rng *rand.Rand, c *client) result {
	in := models.ChatInput{
		Username:     fmt.Sprintf("user_%d", rng.Intn(1000)),
		Content:      fmt.Sprintf("sol %d looks dusty", rng.Intn(4000)),
		ClientOffset: uuid.NewString(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	start := time.Now()
	ack, err := c.request(realtime.EventChatMessage, in, ackTimeout)
	return result{"chat message", time.Since(start), err != nil || !ack.Success}
}

func doVote(rng *rand.Rand, c *client) result {
	in := models.VoteInput{
		UserID:      c.sessionID,
		DayValue:    fmt.Sprintf("%d", rng.Intn(30)+1),
		RoverValue:  rovers[rng.Intn(len(rovers))],
		CameraValue: "NAVCAM",
	}
	start := time.Now()
	// votes outside an open poll get no ack at all
	_, err := c.request(realtime.EventUserVote, in, voteAckWait)
	return result{"userVote", time.Since(start), err != nil && !errors.Is(err, errNoReply)}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
