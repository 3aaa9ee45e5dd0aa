package integration

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/test/testhelpers"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialGateway(t *testing.T, baseURL, origin string) (*wsClient, error) {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	header := http.Header{"Origin": []string{origin}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return nil, err
	}
	return &wsClient{t: t, conn: conn}, nil
}

func (c *wsClient) send(line string) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		c.t.Fatalf("sending %q over websocket: %v", line, err)
	}
}

func (c *wsClient) expect(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("waiting for %q: %v", want, err)
	}
	if got := string(data); got != want {
		c.t.Fatalf("got frame %q, want %q", got, want)
	}
}

func (c *wsClient) close() {
	_ = c.conn.Close()
}

func TestGatewayBridgesToTCPClients(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"*"}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	srv := server.NewServer(cfg, server.NewLoggerTo(io.Discard, "disabled"))
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown(2 * time.Second)
	})

	gateway := httptest.NewServer(srv.GatewayHandler())
	defer gateway.Close()

	web, err := dialGateway(t, gateway.URL, "http://example.com")
	if err != nil {
		t.Fatalf("gateway dial failed: %v", err)
	}
	defer web.close()

	web.send("webbob")
	web.expect("Username accepted: webbob")
	web.send("create bridge")
	web.expect("Created room: bridge")
	web.send("join bridge")
	web.expect("Joined room: bridge")
	web.expect("webbob has joined the room.")

	tcp := testhelpers.Dial(t, ln.Addr().String())
	defer tcp.Close()
	tcp.Login("alice")
	tcp.Send("join bridge")
	tcp.Expect("Joined room: bridge")
	tcp.Expect("alice has joined the room.")
	web.expect("alice has joined the room.")

	tcp.Send("message hello web")
	web.expect("alice: hello web")
	web.send("message hello tcp")
	tcp.Expect("webbob: hello tcp")
}

func TestGatewayRejectsDisallowedOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://localhost:8080"}

	srv := server.NewServer(cfg, server.NewLoggerTo(io.Discard, "disabled"))
	gateway := httptest.NewServer(srv.GatewayHandler())
	defer gateway.Close()

	if client, err := dialGateway(t, gateway.URL, "http://evil.example"); err == nil {
		client.close()
		t.Fatal("dial with disallowed origin succeeded")
	}
}

func TestGatewayHealthEndpoint(t *testing.T) {
	srv := server.NewServer(testConfig(), server.NewLoggerTo(io.Discard, "disabled"))
	gateway := httptest.NewServer(srv.GatewayHandler())
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading health body: %v", err)
	}
	if string(body) != "Parley server is running!" {
		t.Fatalf("health body %q", string(body))
	}
}
