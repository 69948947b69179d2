package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"promptparty/internal/config"
	"promptparty/internal/game"
	"promptparty/internal/http/middleware"
	"promptparty/internal/service"
	"promptparty/internal/session"
)

// slowConfig keeps every window long so state only moves when a test
// drives it.
func slowConfig() game.Config {
	return game.Config{
		Timeouts: game.Timeouts{
			RoundSetup:        time.Minute,
			Selection:         time.Minute,
			SelectionComplete: time.Minute,
			ImageDisplay:      time.Minute,
			ImageGenComplete:  time.Minute,
			JudgingComplete:   time.Minute,
			Results:           time.Minute,
		},
	}
}

// flowConfig hurries the automatic phases but parks wherever player
// input is expected.
func flowConfig() game.Config {
	return game.Config{
		Timeouts: game.Timeouts{
			RoundSetup:        20 * time.Millisecond,
			Selection:         time.Minute,
			SelectionComplete: 20 * time.Millisecond,
			ImageDisplay:      30 * time.Millisecond,
			ImageGenComplete:  20 * time.Millisecond,
			JudgingComplete:   20 * time.Millisecond,
			Results:           time.Minute,
		},
	}
}

func setupRouter(t *testing.T, cfg game.Config) (*gin.Engine, *session.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("handlers-test-secret")

	reg := session.NewRegistry(session.Options{}, nil)
	orch := game.NewOrchestrator(cfg, nil, nil, nil)
	h := NewHandler(reg, orch, nil, &config.Config{})

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/sessions", h.CreateSession)
	api.POST("/sessions/:code/join", h.JoinSession)
	api.GET("/sessions/:code", h.GetSession)
	api.POST("/sessions/:code/start", middleware.JWT(), h.StartGame)
	api.POST("/sessions/:code/leave", middleware.JWT(), h.LeaveSession)
	api.POST("/sessions/:code/selection", middleware.JWT(), h.SubmitSelection)
	api.POST("/sessions/:code/judgement", middleware.JWT(), h.SubmitJudgement)
	api.POST("/sessions/:code/vote", middleware.JWT(), h.SubmitVote)
	api.GET("/games/:id/state", middleware.JWT(), h.GameState)
	api.GET("/games/recent", h.RecentGames)
	api.GET("/games/:id/rounds", h.GameRounds)
	return r, reg
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	}
	return w.Code, out
}

type apiPlayer struct {
	id    string
	name  string
	token string
}

func createSession(t *testing.T, r http.Handler, name string, maxRounds int) (code, gameID string, host apiPlayer) {
	t.Helper()
	status, body := doJSON(t, r, "POST", "/api/v1/sessions", "", gin.H{"name": name, "max_rounds": maxRounds})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)

	player := body["player"].(map[string]any)
	return body["code"].(string), body["game_id"].(string), apiPlayer{
		id:    player["id"].(string),
		name:  player["name"].(string),
		token: body["token"].(string),
	}
}

func joinSession(t *testing.T, r http.Handler, code, name string) apiPlayer {
	t.Helper()
	status, body := doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/join", "", gin.H{"name": name})
	require.Equal(t, http.StatusOK, status, "body: %v", body)

	player := body["player"].(map[string]any)
	return apiPlayer{
		id:    player["id"].(string),
		name:  player["name"].(string),
		token: body["token"].(string),
	}
}

func awaitSessionPhase(t *testing.T, r http.Handler, code, phase string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		status, body := doJSON(t, r, "GET", "/api/v1/sessions/"+code, "", nil)
		require.Equal(t, http.StatusOK, status)
		if body["phase"] == phase {
			return body
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached %s, stuck in %v", phase, body["phase"])
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// handIDs reads the caller's hand over the state endpoint.
func handIDs(t *testing.T, r http.Handler, gameID string, p apiPlayer) []int {
	t.Helper()
	status, body := doJSON(t, r, "GET", "/api/v1/games/"+gameID+"/state", p.token, nil)
	require.Equal(t, http.StatusOK, status, "body: %v", body)

	raw, _ := body["hand"].([]any)
	ids := make([]int, 0, len(raw))
	for _, c := range raw {
		ids = append(ids, int(c.(map[string]any)["id"].(float64)))
	}
	return ids
}

func TestCreateSession(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, gameID, host := createSession(t, r, "Ana", 3)
	t.Cleanup(func() { reg.Remove(code) })

	require.Len(t, code, 6)
	require.NotEmpty(t, gameID)
	require.NotEmpty(t, host.token)

	playerID, tokenCode, err := service.ParsePlayerToken(host.token)
	require.NoError(t, err)
	require.Equal(t, host.id, playerID)
	require.Equal(t, code, tokenCode)

	status, body := doJSON(t, r, "POST", "/api/v1/sessions", "", gin.H{"name": "   "})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "name")

	status, body = doJSON(t, r, "POST", "/api/v1/sessions", "", gin.H{"name": "Max", "max_rounds": 99})
	require.Equal(t, http.StatusCreated, status)
	require.EqualValues(t, 20, body["max_rounds"])
	reg.Remove(body["code"].(string))
}

func TestJoinSession(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, _, _ := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(code) })

	ben := joinSession(t, r, code, "Ben")
	require.Equal(t, "Ben", ben.name)

	// Same display name gets a numbered suffix.
	ana2 := joinSession(t, r, code, "Ana")
	require.Equal(t, "Ana 2", ana2.name)

	status, body := doJSON(t, r, "GET", "/api/v1/sessions/"+code, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["players"], 3)

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/ZZZZZZ/join", "", gin.H{"name": "Ghost"})
	require.Equal(t, http.StatusNotFound, status)
}

func TestGetSession(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, _, host := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(code) })

	status, body := doJSON(t, r, "GET", "/api/v1/sessions/"+code, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, code, body["code"])
	require.Equal(t, string(game.PhaseLobby), body["phase"])
	require.Equal(t, host.id, body["host_id"])

	// The public view never carries hands.
	for _, p := range body["players"].([]any) {
		require.NotContains(t, p.(map[string]any), "hand")
	}

	status, _ = doJSON(t, r, "GET", "/api/v1/sessions/ZZZZZZ", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestStartGameAuth(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, _, host := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(code) })
	ben := joinSession(t, r, code, "Ben")

	status, body := doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, body["error"], "token")

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", ben.token, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", host.token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, string(game.PhaseRoundSetup), body["phase"])

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", host.token, nil)
	require.Equal(t, http.StatusConflict, status)
}

func TestLeaveSession(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	codeA, _, ana := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(codeA) })
	codeB, _, _ := createSession(t, r, "Bea", 0)
	t.Cleanup(func() { reg.Remove(codeB) })

	// A token only works against its own session.
	status, body := doJSON(t, r, "POST", "/api/v1/sessions/"+codeB+"/leave", ana.token, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Contains(t, body["error"], "different session")

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+codeA+"/leave", ana.token, nil)
	require.Equal(t, http.StatusOK, status)

	// The emptied lobby is gone.
	status, _ = doJSON(t, r, "GET", "/api/v1/sessions/"+codeA, "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestActionValidation(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, _, host := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(code) })

	status, body := doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", host.token, gin.H{"card_ids": []int{}})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "card_ids")

	// Still in the lobby, so a shaped request bounces off the phase.
	status, body = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", host.token, gin.H{"card_ids": []int{1}})
	require.Equal(t, http.StatusConflict, status)
	require.Contains(t, body["error"], "closed")

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/judgement", host.token, gin.H{"second_place": "x"})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/vote", host.token, gin.H{})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/vote", host.token, gin.H{"for": "someone"})
	require.Equal(t, http.StatusConflict, status)
	require.Contains(t, body["error"], "closed")
}

func TestGameStateGuards(t *testing.T) {
	r, reg := setupRouter(t, slowConfig())

	code, gameID, host := createSession(t, r, "Ana", 0)
	t.Cleanup(func() { reg.Remove(code) })

	status, _ := doJSON(t, r, "GET", "/api/v1/games/"+gameID+"/state", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, r, "GET", "/api/v1/games/some-other-id/state", host.token, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, body := doJSON(t, r, "GET", "/api/v1/games/"+gameID+"/state", host.token, nil)
	require.Equal(t, http.StatusOK, status)
	state := body["state"].(map[string]any)
	require.Equal(t, string(game.PhaseLobby), state["phase"])
	require.Empty(t, body["hand"])
}

func TestHistoryDisabledWithoutDatabase(t *testing.T) {
	r, _ := setupRouter(t, slowConfig())

	status, body := doJSON(t, r, "GET", "/api/v1/games/recent", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Contains(t, body["error"], "disabled")

	status, _ = doJSON(t, r, "GET", "/api/v1/games/some-id/rounds", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestGameFlowOverHTTP(t *testing.T) {
	r, reg := setupRouter(t, flowConfig())

	code, gameID, ana := createSession(t, r, "Ana", 1)
	t.Cleanup(func() { reg.Remove(code) })
	ben := joinSession(t, r, code, "Ben")
	cleo := joinSession(t, r, code, "Cleo")

	status, _ := doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/start", ana.token, nil)
	require.Equal(t, http.StatusOK, status)

	snap := awaitSessionPhase(t, r, code, string(game.PhaseSelection), 2*time.Second)
	judgeID := snap["judge_id"].(string)
	blanks := int(snap["template"].(map[string]any)["blanks"].(float64))
	require.Greater(t, blanks, 0)

	var judge apiPlayer
	var selectors []apiPlayer
	for _, p := range []apiPlayer{ana, ben, cleo} {
		if p.id == judgeID {
			judge = p
		} else {
			selectors = append(selectors, p)
		}
	}
	require.NotEmpty(t, judge.id, "judge_id not in the roster")
	require.Len(t, selectors, 2)

	// The judge sits the selection out.
	judgeHand := handIDs(t, r, gameID, judge)
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", judge.token,
		gin.H{"card_ids": judgeHand[:blanks]})
	require.Equal(t, http.StatusForbidden, status)

	hand0 := handIDs(t, r, gameID, selectors[0])
	require.Len(t, hand0, 8)
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", selectors[0].token,
		gin.H{"card_ids": hand0[:blanks]})
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", selectors[0].token,
		gin.H{"card_ids": hand0[:blanks]})
	require.Equal(t, http.StatusConflict, status)
	require.Contains(t, body["error"], "already")

	hand1 := handIDs(t, r, gameID, selectors[1])
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", selectors[1].token,
		gin.H{"card_ids": hand1[:blanks+1]})
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/selection", selectors[1].token,
		gin.H{"card_ids": hand1[:blanks]})
	require.Equal(t, http.StatusOK, status)

	awaitSessionPhase(t, r, code, string(game.PhaseJudging), 3*time.Second)

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/vote", selectors[0].token,
		gin.H{"for": selectors[0].id})
	require.Equal(t, http.StatusBadRequest, status)
	status, body = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/vote", selectors[0].token,
		gin.H{"for": judge.id})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "no submission")
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/vote", selectors[0].token,
		gin.H{"for": selectors[1].id})
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/judgement", selectors[0].token,
		gin.H{"first_place": selectors[1].id})
	require.Equal(t, http.StatusForbidden, status)
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/judgement", judge.token,
		gin.H{"first_place": judge.id})
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = doJSON(t, r, "POST", "/api/v1/sessions/"+code+"/judgement", judge.token,
		gin.H{"first_place": selectors[1].id, "second_place": selectors[0].id})
	require.Equal(t, http.StatusOK, status)

	snap = awaitSessionPhase(t, r, code, string(game.PhaseResults), 2*time.Second)
	decision := snap["decision"].(map[string]any)
	require.Equal(t, selectors[1].id, decision["first_place"])

	scores := map[string]float64{}
	for _, p := range snap["players"].([]any) {
		pm := p.(map[string]any)
		scores[pm["id"].(string)] = pm["score"].(float64)
	}
	require.EqualValues(t, 3, scores[selectors[1].id])
	require.EqualValues(t, 1, scores[selectors[0].id])
	require.EqualValues(t, 0, scores[judge.id])
}
