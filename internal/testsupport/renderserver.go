// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/park285/pgn2gif/pkg/gifdto"
	"github.com/valyala/fasthttp"
)

// RenderServer is a fake lila-gif endpoint on a loopback port. It answers
// every request with GIFBody(req) unless Fail matches the request.
type RenderServer struct {
	URL string

	// Fail, when set, makes the server answer 500 for matching requests.
	Fail func(req gifdto.GameRequest) bool
	// Delay, when set, is slept before answering.
	Delay func(req gifdto.GameRequest) time.Duration

	mu       sync.Mutex
	requests []gifdto.GameRequest
	inFlight int
	peak     int
}

// GIFBody is the deterministic body the fake server returns for req.
func GIFBody(req gifdto.GameRequest) []byte {
	return []byte(fmt.Sprintf("GIF89a|%s|%s|%s|%d", req.White, req.Black, req.Orientation, len(req.Frames)))
}

// StartRenderServer serves until the test ends.
func StartRenderServer(t testing.TB) *RenderServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	rs := &RenderServer{URL: "http://" + ln.Addr().String() + "/game.gif"}
	srv := &fasthttp.Server{Handler: rs.handle}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return rs
}

func (rs *RenderServer) handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() || string(ctx.Path()) != "/game.gif" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("not found")
		return
	}
	var req gifdto.GameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("bad json: " + err.Error())
		return
	}

	rs.mu.Lock()
	rs.requests = append(rs.requests, req)
	rs.inFlight++
	if rs.inFlight > rs.peak {
		rs.peak = rs.inFlight
	}
	rs.mu.Unlock()
	defer func() {
		rs.mu.Lock()
		rs.inFlight--
		rs.mu.Unlock()
	}()

	if rs.Delay != nil {
		time.Sleep(rs.Delay(req))
	}
	if rs.Fail != nil && rs.Fail(req) {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render exploded")
		return
	}
	ctx.SetContentType("image/gif")
	ctx.SetBody(GIFBody(req))
}

// Requests returns a copy of every decoded request, in arrival order.
func (rs *RenderServer) Requests() []gifdto.GameRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]gifdto.GameRequest(nil), rs.requests...)
}

// PeakInFlight is the highest number of requests handled at once.
func (rs *RenderServer) PeakInFlight() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.peak
}
