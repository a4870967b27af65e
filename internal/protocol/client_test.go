package protocol

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport implements Transport with programmable behavior and call
// counters.
type fakeTransport struct {
	mu            sync.Mutex
	callToolCalls int
	inFlight      int32
	maxInFlight   int32

	tools    []mcp.Tool
	result   *mcp.CallToolResult
	err      error
	blockCtx bool // block CallTool until the context expires
	delay    time.Duration
}

func (f *fakeTransport) Initialize(ctx context.Context) error { return f.err }

func (f *fakeTransport) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tools, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}

	f.mu.Lock()
	f.callToolCalls++
	f.mu.Unlock()

	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeTransport) Ping(ctx context.Context) error { return f.err }
func (f *fakeTransport) Close() error                   { return nil }

// fakeProvider maps tool ids to transports and records stream failure
// reports.
type fakeProvider struct {
	mu         sync.Mutex
	transports map[string]Transport
	failures   []string
}

func (p *fakeProvider) Transport(toolID string) (Transport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.transports[toolID]
	return t, ok
}

func (p *fakeProvider) ReportStreamFailure(toolID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, toolID)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func TestCall_Success(t *testing.T) {
	ft := &fakeTransport{result: textResult("hello")}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"echo": ft}})

	out := client.Call(context.Background(), CallRequest{
		ToolID: "echo",
		Method: MethodCallTool,
		Params: map[string]interface{}{"name": "say", "arguments": map[string]interface{}{"text": "hello"}},
	})

	require.True(t, out.OK())
	assert.Equal(t, "hello", out.Result.Text())
	assert.NotEmpty(t, out.CallID)
	assert.Equal(t, 1, ft.callToolCalls)
}

func TestCall_NoHandleIsUnavailable(t *testing.T) {
	client := NewClient(&fakeProvider{transports: map[string]Transport{}})

	out := client.Call(context.Background(), CallRequest{ToolID: "ghost", Method: MethodCallTool})

	require.False(t, out.OK())
	assert.Equal(t, KindUnavailable, out.Err.Kind)
}

func TestCall_MissingNameIsProtocolError(t *testing.T) {
	ft := &fakeTransport{result: textResult("x")}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"echo": ft}})

	out := client.Call(context.Background(), CallRequest{
		ToolID: "echo",
		Method: MethodCallTool,
		Params: map[string]interface{}{"arguments": map[string]interface{}{}},
	})

	require.False(t, out.OK())
	assert.Equal(t, KindProtocolError, out.Err.Kind)
	assert.Equal(t, 0, ft.callToolCalls, "malformed request must not reach the transport")
}

func TestCall_UnknownMethodIsProtocolError(t *testing.T) {
	ft := &fakeTransport{}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"echo": ft}})

	out := client.Call(context.Background(), CallRequest{ToolID: "echo", Method: "tools/dance"})

	require.False(t, out.OK())
	assert.Equal(t, KindProtocolError, out.Err.Kind)
}

func TestCall_TimeoutIsClassified(t *testing.T) {
	ft := &fakeTransport{blockCtx: true}
	provider := &fakeProvider{transports: map[string]Transport{"slow": ft}}
	client := NewClient(provider)

	start := time.Now()
	out := client.Call(context.Background(), CallRequest{
		ToolID:  "slow",
		Method:  MethodCallTool,
		Params:  map[string]interface{}{"name": "wait"},
		Timeout: 30 * time.Millisecond,
	})
	elapsed := time.Since(start)

	require.False(t, out.OK())
	assert.Equal(t, KindTimeout, out.Err.Kind)
	// The call returns at roughly the deadline, not after the tool's full
	// runtime.
	assert.Less(t, elapsed, 2*time.Second)
	assert.Empty(t, provider.failures, "a timeout is not a stream failure")
}

func TestCall_StreamErrorReportsFailure(t *testing.T) {
	ft := &fakeTransport{err: errors.New("broken pipe")}
	provider := &fakeProvider{transports: map[string]Transport{"echo": ft}}
	client := NewClient(provider)

	out := client.Call(context.Background(), CallRequest{
		ToolID: "echo",
		Method: MethodCallTool,
		Params: map[string]interface{}{"name": "say"},
	})

	require.False(t, out.OK())
	assert.Equal(t, KindUnavailable, out.Err.Kind)
	assert.Equal(t, []string{"echo"}, provider.failures)
}

func TestCall_ToolReportedError(t *testing.T) {
	ft := &fakeTransport{result: &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent("no such file")},
		IsError: true,
	}}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"fs": ft}})

	out := client.Call(context.Background(), CallRequest{
		ToolID: "fs",
		Method: MethodCallTool,
		Params: map[string]interface{}{"name": "read_file"},
	})

	require.False(t, out.OK())
	assert.Equal(t, KindToolError, out.Err.Kind)
	assert.Contains(t, out.Err.Detail, "no such file")
}

func TestCall_ListTools(t *testing.T) {
	ft := &fakeTransport{tools: []mcp.Tool{{Name: "read_file"}, {Name: "write_file"}}}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"fs": ft}})

	out := client.Call(context.Background(), CallRequest{ToolID: "fs", Method: MethodListTools})

	require.True(t, out.OK())
	require.Len(t, out.Result.Tools, 2)
	assert.Equal(t, "read_file", out.Result.Tools[0].Name)
}

func TestCall_SameToolSerialized(t *testing.T) {
	ft := &fakeTransport{result: textResult("ok"), delay: 10 * time.Millisecond}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"echo": ft}})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := client.Call(context.Background(), CallRequest{
				ToolID: "echo",
				Method: MethodCallTool,
				Params: map[string]interface{}{"name": "say"},
			})
			assert.True(t, out.OK())
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ft.callToolCalls)
	assert.Equal(t, int32(1), ft.maxInFlight, "same-tool calls must not overlap on the transport")
}

func TestCall_DifferentToolsRunInParallel(t *testing.T) {
	slow := &fakeTransport{blockCtx: true}
	fast := &fakeTransport{result: textResult("ok")}
	client := NewClient(&fakeProvider{transports: map[string]Transport{"slow": slow, "fast": fast}})

	done := make(chan struct{})
	go func() {
		client.Call(context.Background(), CallRequest{
			ToolID:  "slow",
			Method:  MethodCallTool,
			Params:  map[string]interface{}{"name": "wait"},
			Timeout: 500 * time.Millisecond,
		})
		close(done)
	}()

	// Give the slow call time to take its lock.
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	out := client.Call(context.Background(), CallRequest{
		ToolID: "fast",
		Method: MethodCallTool,
		Params: map[string]interface{}{"name": "say"},
	})
	require.True(t, out.OK())
	assert.Less(t, time.Since(start), 200*time.Millisecond, "a stalled tool must not delay other tools")

	<-done
}
