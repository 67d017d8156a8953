// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in play page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/tapwars/internal/dependencies/clock"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// Server bundles the hub with the HTTP handlers that feed it.
type Server struct {
	cfg      Config
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a Server and its hub. Call Start to run the hub.
func NewServer(store storage.Storage, cfg Config, clk clock.Clock, logger *slog.Logger) *Server {
	cfg = sanitizeConfig(cfg)
	s := &Server{
		cfg:     cfg,
		hub:     NewHub(store, cfg, clk, logger),
		origins: newOriginPolicy(cfg.AllowedOrigins, logger),
		logger:  logger.With(slog.String("component", "http")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Hub returns the game hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.cfg
}

// Start runs the hub in a separate goroutine.
func (s *Server) Start() {
	go s.hub.Run()
	s.logger.Info("hub started", slog.Duration("tick_interval", s.cfg.TickInterval))
}

// WebSocketHandler upgrades the request and registers the connection with
// the hub, which starts its pumps and sends the init payload.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	if err := s.hub.Register(client); err != nil {
		s.logger.Warn("rejecting connection", slog.Any("error", err))
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "tapwars server is running!")
}

// PlayPageHandler serves a minimal browser client for the game.
func (s *Server) PlayPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, playPage); err != nil {
		s.logger.Warn("error writing play page", slog.Any("error", err))
	}
}

const playPage = `<!DOCTYPE html>
<html>
<head>
    <title>tapwars</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }
        section { border: 1px solid #ccc; padding: 10px; background-color: #f9f9f9; }
        #chatLog { height: 240px; overflow-y: scroll; }
        #tapButton { font-size: 2em; padding: 20px 40px; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .system { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <section id="player">
        <h1>tapwars</h1>
        <div id="status" class="status disconnected">Disconnected</div>
        <form id="nameForm">
            <input type="text" id="nickname" maxlength="32" placeholder="Nickname">
            <input type="password" id="adminToken" placeholder="Admin token (optional)">
            <button type="submit">Join</button>
        </form>
        <form id="iconForm" enctype="multipart/form-data">
            <input type="file" id="iconFile" name="icon" accept="image/*">
            <button type="submit">Upload icon</button>
        </form>
        <p>Coins: <span id="coins">0</span> | Per tap: <span id="tapValue">1</span> | Per second: <span id="autoPerSec">0</span></p>
        <button id="tapButton" disabled>TAP</button>
        <h2>Shop</h2>
        <ul id="shop"></ul>
    </section>
    <section id="social">
        <h2>Rankings</h2>
        <ol id="ranks"></ol>
        <h2>Chat</h2>
        <div id="chatLog"></div>
        <form id="chatForm">
            <input type="text" id="chatInput" maxlength="500" placeholder="Say something..." disabled>
            <button type="submit">Send</button>
        </form>
    </section>

    <script>
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/ws');
        const statusDiv = document.getElementById('status');
        const chatLog = document.getElementById('chatLog');
        let me = null;

        function send(msg) { ws.send(JSON.stringify(msg)); }

        function addLine(text, cls) {
            const el = document.createElement('div');
            if (cls) { el.className = cls; }
            el.textContent = text;
            chatLog.appendChild(el);
            chatLog.scrollTop = chatLog.scrollHeight;
        }

        function showSelf(p) {
            document.getElementById('coins').textContent = p.coins;
            document.getElementById('tapValue').textContent = p.tapValue;
            document.getElementById('autoPerSec').textContent = p.autoPerSec;
        }

        function renderShop(items) {
            const list = document.getElementById('shop');
            list.innerHTML = '';
            items.forEach(function (item) {
                const li = document.createElement('li');
                const btn = document.createElement('button');
                btn.textContent = item.name + ' (' + item.price + ') +' + item.value + ' ' + item.kind;
                btn.onclick = function () { send({type: 'buy', itemId: item.id}); };
                li.appendChild(btn);
                list.appendChild(li);
            });
        }

        function renderRanks(ranks, players) {
            const list = document.getElementById('ranks');
            list.innerHTML = '';
            ranks.forEach(function (p) {
                const li = document.createElement('li');
                li.textContent = p.nickname + ' - ' + p.taps + ' taps';
                list.appendChild(li);
            });
            (players || []).forEach(function (p) { if (p.nickname === me) { showSelf(p); } });
        }

        ws.onopen = function () {
            statusDiv.textContent = 'Connected';
            statusDiv.className = 'status connected';
        };
        ws.onclose = function () {
            statusDiv.textContent = 'Disconnected';
            statusDiv.className = 'status disconnected';
        };
        ws.onmessage = function (event) {
            const msg = JSON.parse(event.data);
            switch (msg.type) {
            case 'init':
                renderShop(msg.shop);
                renderRanks(msg.ranks, []);
                msg.chats.forEach(function (c) { addLine(c.nickname + ': ' + c.text); });
                break;
            case 'setNameResult':
                if (msg.ok) {
                    me = msg.nickname;
                    document.getElementById('tapButton').disabled = false;
                    document.getElementById('chatInput').disabled = false;
                } else {
                    addLine('Name rejected: ' + msg.reason, 'system');
                }
                break;
            case 'tap':
                if (msg.nickname === me) { showSelf(msg); }
                break;
            case 'buyResult':
                if (msg.ok) { showSelf(msg.user); } else { addLine('Purchase failed: ' + msg.reason, 'system'); }
                break;
            case 'ranks':
                renderRanks(msg.ranks, msg.players);
                break;
            case 'chat':
                addLine(msg.nickname + ': ' + msg.text);
                break;
            case 'system':
                addLine(msg.text, 'system');
                break;
            case 'banned':
                addLine('You have been banned.', 'system');
                break;
            case 'error':
                addLine('Error: ' + msg.error, 'system');
                break;
            }
        };

        document.getElementById('nameForm').onsubmit = function (e) {
            e.preventDefault();
            send({
                type: 'setName',
                nickname: document.getElementById('nickname').value,
                adminToken: document.getElementById('adminToken').value
            });
        };
        document.getElementById('tapButton').onclick = function () { send({type: 'tap'}); };
        document.getElementById('chatForm').onsubmit = function (e) {
            e.preventDefault();
            const input = document.getElementById('chatInput');
            if (input.value.trim()) { send({type: 'chat', text: input.value}); }
            input.value = '';
        };
        document.getElementById('iconForm').onsubmit = function (e) {
            e.preventDefault();
            if (!me) { return; }
            const data = new FormData();
            data.append('nickname', me);
            data.append('adminToken', document.getElementById('adminToken').value);
            data.append('icon', document.getElementById('iconFile').files[0]);
            fetch('/upload', {method: 'POST', body: data});
        };
    </script>
</body>
</html>`
