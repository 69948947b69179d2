package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Smoke client: creates a session, joins two guests, plays one full
// round against a running server and prints what it saw. Needs no
// database; run the server with defaults and then this.
func main() {
	base := os.Getenv("BASE_URL")
	if base == "" {
		// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		base = "http://127.0.0.1:" + port
	}

	host := createSession(base, "SmokeHost")
	guest1 := joinSession(base, host.code, "SmokeGuestOne")
	guest2 := joinSession(base, host.code, "SmokeGuestTwo")
	log.Printf("session %s with players %s %s %s", host.code, host.playerID, guest1.playerID, guest2.playerID)

	for _, p := range []*player{host, guest1, guest2} {
		p.dial(base)
		defer p.conn.Close()
	}

	if _, err := post(base, "/api/v1/sessions/"+host.code+"/start", host.token, nil); err != nil {
		log.Fatalf("start: %v", err)
	}

	// The first judge is random, so work out roles from the phase
	// event. Hands arrive during round setup, before the selection
	// phase event, on every player's own socket.
	all := []*player{host, guest1, guest2}
	var judge *player
	var selectors []*player
	var blanks int
	for _, p := range all {
		hand, err := awaitType(p.conn, "hand", 15*time.Second)
		if err != nil {
			log.Fatalf("%s hand: %v", p.name, err)
		}
		sel, err := awaitPhase(p.conn, "SELECTION", 15*time.Second)
		if err != nil {
			log.Fatalf("%s waiting for selection phase: %v", p.name, err)
		}
		blanks = templateBlanks(sel)
		judgeID, _ := sel["judge_id"].(string)
		if p.playerID == judgeID {
			judge = p
			continue
		}
		selectors = append(selectors, p)

		ids := cardIDs(hand)
		if len(ids) < blanks {
			log.Fatalf("%s hand too small: %d", p.name, len(ids))
		}
		body := map[string]any{"card_ids": ids[:blanks]}
		if _, err := post(base, "/api/v1/sessions/"+host.code+"/selection", p.token, body); err != nil {
			log.Fatalf("%s selection: %v", p.name, err)
		}
		log.Printf("%s submitted cards %v", p.name, ids[:blanks])
	}
	if judge == nil || len(selectors) != 2 {
		log.Fatalf("expected one judge and two selectors, got judge=%v selectors=%d", judge, len(selectors))
	}
	log.Printf("judge this round: %s", judge.name)

	// Selections trigger image generation, give it room to finish.
	if _, err := awaitPhase(host.conn, "JUDGING", 2*time.Minute); err != nil {
		log.Fatalf("waiting for judging phase: %v", err)
	}

	if _, err := post(base, "/api/v1/sessions/"+host.code+"/vote", selectors[0].token,
		map[string]any{"for": selectors[1].playerID}); err != nil {
		log.Printf("vote failed (non-fatal): %v", err)
	}

	if _, err := post(base, "/api/v1/sessions/"+host.code+"/judgement", judge.token,
		map[string]any{"first_place": selectors[0].playerID, "second_place": selectors[1].playerID}); err != nil {
		log.Fatalf("judgement: %v", err)
	}

	results, err := awaitType(host.conn, "round_results", 30*time.Second)
	if err != nil {
		log.Fatalf("waiting for results: %v", err)
	}
	pretty, _ := json.MarshalIndent(results, "", "  ")
	log.Printf("round results:\n%s", pretty)

	state, err := get(base, "/api/v1/games/"+host.gameID+"/state", host.token)
	if err != nil {
		log.Fatalf("state: %v", err)
	}
	if s, ok := state["state"].(map[string]any); ok {
		log.Printf("server phase after round: %v", s["phase"])
	}

	log.Println("smoke test finished")
}

type player struct {
	name     string
	playerID string
	gameID   string
	code     string
	token    string
	conn     *websocket.Conn
}

func createSession(base, name string) *player {
	resp, err := post(base, "/api/v1/sessions", "", map[string]any{"name": name, "max_rounds": 3})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	return playerFrom(resp, name)
}

func joinSession(base, code, name string) *player {
	resp, err := post(base, "/api/v1/sessions/"+code+"/join", "", map[string]any{"name": name})
	if err != nil {
		log.Fatalf("join session: %v", err)
	}
	return playerFrom(resp, name)
}

func playerFrom(resp map[string]any, name string) *player {
	p := &player{name: name}
	p.code, _ = resp["code"].(string)
	p.token, _ = resp["token"].(string)
	p.gameID, _ = resp["game_id"].(string)
	if obj, ok := resp["player"].(map[string]any); ok {
		p.playerID, _ = obj["id"].(string)
	}
	if p.code == "" || p.token == "" || p.playerID == "" {
		log.Fatalf("bad session response for %s: %v", name, resp)
	}
	return p
}

func (p *player) dial(base string) {
	wsURL := "ws" + base[len("http"):] + "/ws?token=" + p.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", p.name, err)
	}
	p.conn = conn
}

// awaitType reads events until one of the wanted type arrives. The
// timeout is a total budget; unrelated events just get skipped.
func awaitType(conn *websocket.Conn, typ string, timeout time.Duration) (map[string]any, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", typ, err)
		}
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if json.Unmarshal(msg, &ev) != nil {
			continue
		}
		if ev.Type == typ {
			return ev.Payload, nil
		}
	}
}

func awaitPhase(conn *websocket.Conn, phase string, timeout time.Duration) (map[string]any, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("waiting for phase %s: %w", phase, err)
		}
		var ev struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if json.Unmarshal(msg, &ev) != nil {
			continue
		}
		if ev.Type == "phase_changed" && ev.Payload["phase"] == phase {
			return ev.Payload, nil
		}
	}
}

func templateBlanks(phasePayload map[string]any) int {
	tpl, ok := phasePayload["template"].(map[string]any)
	if !ok {
		return 1
	}
	if n, ok := tpl["blanks"].(float64); ok && n > 0 {
		return int(n)
	}
	return 1
}

func cardIDs(handPayload map[string]any) []int {
	cards, _ := handPayload["cards"].([]any)
	var ids []int
	for _, c := range cards {
		if m, ok := c.(map[string]any); ok {
			if id, ok := m["id"].(float64); ok {
				ids = append(ids, int(id))
			}
		}
	}
	return ids
}

func post(base, path, token string, body any) (map[string]any, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(http.MethodPost, base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req, path)
}

func get(base, path, token string) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, base+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req, path)
}

func do(req *http.Request, path string) (map[string]any, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 {
		return out, fmt.Errorf("%s: status %d (%v)", path, resp.StatusCode, out["error"])
	}
	return out, nil
}
