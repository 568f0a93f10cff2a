package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/presence-hub/internal/proto"
)

// incoming mirrors proto.Outbound with the payload left raw for decoding per event.
type incoming struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address, /ws/<channel> for a named channel")
	nick := flag.String("nick", "", "nick to claim, empty for a generated one")
	password := flag.String("password", "", "password of a verified nick")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Nick: *nick, Password: *password}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send, /name key=value for commands. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, kind string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var in incoming
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				fmt.Println("disconnected: banned")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if in.Type == proto.OutboundTypeError && in.Error != nil {
			fmt.Printf("! %s: %s\n", in.Error.Code, in.Error.Msg)
			continue
		}
		if err := printEvent(in); err != nil {
			log.Printf("decode %s: %v", in.Event, err)
		}
	}
}

func printEvent(in incoming) error {
	switch in.Event {
	case "online":
		var peers []proto.Peer
		if err := json.Unmarshal(in.Data, &peers); err != nil {
			return err
		}
		nicks := make([]string, 0, len(peers))
		for _, p := range peers {
			nicks = append(nicks, p.Nick)
		}
		fmt.Printf("* online: %s\n", strings.Join(nicks, ", "))
	case "join", "left":
		var p proto.Peer
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return err
		}
		fmt.Printf("* %s %s\n", p.Nick, map[string]string{"join": "joined", "left": "left"}[in.Event])
	case "nick":
		var p proto.Peer
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return err
		}
		fmt.Printf("* %s is now %s\n", p.ID, p.Nick)
	case "message":
		var evt proto.EventMessage
		if err := json.Unmarshal(in.Data, &evt); err != nil {
			return err
		}
		switch evt.Type {
		case "chat-message":
			fmt.Printf("<%s> %s\n", evt.Nick, evt.Message)
		case "action-message":
			fmt.Printf("* %s\n", evt.Message)
		case "personal-message":
			fmt.Printf("[%s -> %s] %s\n", evt.From, evt.To, evt.Message)
		case "error-message":
			fmt.Printf("! %s: %s\n", evt.Code, evt.Message)
		default:
			fmt.Printf("- %s\n", evt.Message)
		}
	default:
		fmt.Printf("event=%s data=%s\n", in.Event, string(in.Data))
	}
	return nil
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			if strings.HasPrefix(text, "/") {
				err = send(ctx, conn, proto.InboundTypeCommand, parseCommand(text[1:]))
			} else {
				err = send(ctx, conn, proto.InboundTypeMessage, text)
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

// parseCommand turns "pm nick=bob message=see you" into a command. Words without
// an "=" extend the value of the preceding param.
func parseCommand(line string) proto.CommandData {
	fields := strings.Fields(line)
	cmd := proto.CommandData{Params: map[string]any{}}
	if len(fields) == 0 {
		return cmd
	}
	cmd.Name = fields[0]

	var key string
	for _, field := range fields[1:] {
		if k, v, ok := strings.Cut(field, "="); ok && k != "" {
			key = k
			cmd.Params[key] = v
			continue
		}
		if key == "" {
			continue
		}
		cmd.Params[key] = cmd.Params[key].(string) + " " + field
	}
	return cmd
}
