package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestConnectPostsPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != PathConnect {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatalf("missing request id")
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "nest-selector/") {
			t.Fatalf("unexpected user agent: %q", r.Header.Get("User-Agent"))
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if _, ok := req["projections"]; !ok {
			t.Fatalf("payload without projections: %s", body)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	c := New(server.URL+"/", time.Second)
	out, err := c.Connect(context.Background(), map[string]any{"network": nil, "projections": map[string]any{}})
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if string(out) != `{"status":"ok"}` {
		t.Fatalf("unexpected response: %s", out)
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"kernel exploded"}`))
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Simulate(context.Background(), struct{}{})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "kernel exploded") || !strings.Contains(err.Error(), "500") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestUnreachableService(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(url, time.Second)
	if _, err := c.Connect(context.Background(), struct{}{}); err == nil {
		t.Fatalf("expected an error from a closed server")
	}
}

func TestStreamDeliversMessages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathStream {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"plot_results":{"time":1,"spike_det":{"senders":[3,4],"times":[0.5,0.7]},"rec_dev":{"times":[1],"V_m":[-65]}}}
{"stream_results":{"voltmeter_2":{"7":[1.0,-60.0]}}}
{"plot_results":{"time":2,"spike_det":{"senders":[],"times":[]},"rec_dev":{"times":[],"V_m":[]}},"stream_results":{}}
`))
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	var bufs Buffers
	var samples []Sample
	err := c.Stream(context.Background(), struct{}{}, func(msg StreamMessage) {
		bufs.Append(msg.PlotResults)
		samples = append(samples, msg.Samples()...)
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if bufs.Messages != 3 || bufs.SpikeCount() != 2 || len(bufs.Vm) != 1 || bufs.Time != 2 {
		t.Fatalf("unexpected buffers: %+v", bufs)
	}
	if len(samples) != 1 || samples[0].Neuron != 7 || samples[0].Value != -60 {
		t.Fatalf("unexpected samples: %+v", samples)
	}
	if c.Streaming() {
		t.Fatalf("slot still held after the stream ended")
	}
}

// blockingServer sends one message per stream and then holds the connection
// until the client goes away.
func blockingServer(t *testing.T, aborts *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathAbort:
			aborts.Add(1)
			w.WriteHeader(http.StatusOK)
		case PathStream:
			_, _ = w.Write([]byte(`{"plot_results":{"time":1}}` + "\n"))
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
}

func TestAbortSupersedesStream(t *testing.T) {
	t.Parallel()

	var aborts atomic.Int32
	server := blockingServer(t, &aborts)
	defer server.Close()

	c := New(server.URL, time.Second)
	first := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Stream(context.Background(), struct{}{}, func(StreamMessage) {
			select {
			case first <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatalf("no stream message received")
	}
	if err := c.Abort(context.Background()); err != nil {
		t.Fatalf("Abort returned error: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("expected ErrSuperseded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("stream kept running after abort")
	}
	if n := aborts.Load(); n != 1 {
		t.Fatalf("abort requests = %d", n)
	}
	if c.Streaming() {
		t.Fatalf("slot still held after abort")
	}
}

func TestNewStreamSupersedesOld(t *testing.T) {
	t.Parallel()

	var aborts atomic.Int32
	server := blockingServer(t, &aborts)
	defer server.Close()

	c := New(server.URL, time.Second)
	started := make(chan struct{}, 2)
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Stream(context.Background(), struct{}{}, func(StreamMessage) { started <- struct{}{} })
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- c.Stream(ctx, struct{}{}, func(StreamMessage) { started <- struct{}{} })
	}()

	select {
	case err := <-firstDone:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first stream: expected ErrSuperseded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("first stream was not superseded")
	}

	<-started
	cancel()
	select {
	case err := <-secondDone:
		if err == nil || errors.Is(err, ErrSuperseded) {
			t.Fatalf("caller cancellation should surface as a plain error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("second stream ignored cancellation")
	}
}

func TestDecodeStreamMalformed(t *testing.T) {
	t.Parallel()

	n := 0
	err := DecodeStream(strings.NewReader(`{"plot_results":{"time":1}} {"plot_results":`), func(StreamMessage) error {
		n++
		return nil
	})
	if err == nil || n != 1 {
		t.Fatalf("expected one message then an error, got %d, %v", n, err)
	}
}

func TestSamplesOrderAndSkip(t *testing.T) {
	t.Parallel()

	msg := StreamMessage{StreamResults: map[string]map[string][]float64{
		"voltmeter_3": {"12": {1, -62}, "2": {1, -64}},
		"voltmeter_1": {"5": {1, -70}, "x": {1, 0}, "6": {1}},
	}}
	got := msg.Samples()
	want := []struct {
		dev string
		id  int
	}{{"voltmeter_1", 5}, {"voltmeter_3", 2}, {"voltmeter_3", 12}}
	if len(got) != len(want) {
		t.Fatalf("unexpected samples: %+v", got)
	}
	for i, w := range want {
		if got[i].Device != w.dev || got[i].Neuron != w.id {
			t.Fatalf("sample %d = %+v, want %v", i, got[i], w)
		}
	}
}

func TestBuffersTolerateEmptyPayloads(t *testing.T) {
	t.Parallel()

	var b Buffers
	b.Append(nil)
	b.Append(&PlotResults{})
	b.Append(&PlotResults{SpikeDet: SpikeDet{Senders: []int{1, 2}, Times: []float64{0.1}}})
	if b.Messages != 3 || b.SpikeCount() != 1 || len(b.SpikeSenders) != 1 {
		t.Fatalf("unexpected buffers: %+v", b)
	}
	b.Reset()
	if b.Messages != 0 || b.SpikeCount() != 0 {
		t.Fatalf("reset left data: %+v", b)
	}
}

func TestOpenStreamOrdersByCall(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plot_results":{"time":1}}` + "\n"))
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	var got []string
	first := c.OpenStream(context.Background(), struct{}{}, func(StreamMessage) { got = append(got, "first") })
	second := c.OpenStream(context.Background(), struct{}{}, func(StreamMessage) { got = append(got, "second") })

	// Run the older stream last: it must still lose the slot.
	if err := second(); err != nil {
		t.Fatalf("second stream: %v", err)
	}
	if err := first(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first stream: expected ErrSuperseded, got %v", err)
	}
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("messages from %v", got)
	}
	if c.Streaming() {
		t.Error("slot still held after both streams returned")
	}
}
