package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/presence-hub/internal/proto"
)

type incoming struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("smoke test failed: %v", err)
	}
	log.Println("smoke test succeeded")
}

// run joins a channel, sends one chat message and waits for it to come back.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	nick := flag.String("nick", "smoke", "nick to claim")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(kind string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kind, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", kind, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{Nick: *nick}); err != nil {
		return err
	}

	var claimed string
	for {
		var in incoming
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", in.Type)
		if in.Event != "" {
			fmt.Printf(" event=%s", in.Event)
		}
		fmt.Println()

		if in.Error != nil {
			return fmt.Errorf("protocol error %s: %s", in.Error.Code, in.Error.Msg)
		}

		switch in.Event {
		case "update":
			var update map[string]any
			if err := json.Unmarshal(in.Data, &update); err != nil {
				return fmt.Errorf("unmarshal update: %w", err)
			}
			nick, _ := update["nick"].(string)
			if nick == "" || claimed != "" {
				continue
			}
			claimed = nick
			fmt.Printf("Claimed nick %s\n", claimed)
			if err := mustSend(proto.InboundTypeMessage, *text); err != nil {
				return err
			}
		case "message":
			var evt proto.EventMessage
			if err := json.Unmarshal(in.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(in.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			if evt.Type == "error-message" {
				return fmt.Errorf("notice %s: %s", evt.Code, evt.Message)
			}
			if evt.Nick == claimed && evt.Message == *text {
				fmt.Printf("EventMessage: type=%s nick=%s message=%q\n", evt.Type, evt.Nick, evt.Message)
				return nil
			}
		}
	}
}
