package repository

import (
	"context"
	"encoding/json"
	"time"

	"promptparty/internal/game"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultsRepository persists finished rounds and game summaries. It
// implements game.ResultSink; a nil repository means persistence is
// disabled.
type ResultsRepository struct {
	db *pgxpool.Pool
}

func NewResultsRepository(db *pgxpool.Pool) *ResultsRepository {
	return &ResultsRepository{db: db}
}

func (r *ResultsRepository) RecordRound(ctx context.Context, rec game.RoundRecord) error {
	imagesJSON, err := json.Marshal(rec.Images)
	if err != nil {
		imagesJSON = []byte("[]")
	}

	var first, second string
	auto := false
	if rec.Decision != nil {
		first = rec.Decision.FirstPlaceID
		second = rec.Decision.SecondPlaceID
		auto = rec.Decision.AutoPicked
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO round_results
			(game_id, code, round, sentence, first_place, second_place, auto_picked, images, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.GameID,
		rec.Code,
		rec.Round,
		rec.Sentence,
		first,
		second,
		auto,
		imagesJSON,
		rec.PlayedAt,
	)
	return err
}

func (r *ResultsRepository) RecordGame(ctx context.Context, rec game.GameRecord) error {
	playersJSON, err := json.Marshal(rec.Players)
	if err != nil {
		playersJSON = []byte("[]")
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO game_results
			(game_id, code, rounds, winner_id, winner_name, players, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (game_id) DO NOTHING`,
		rec.GameID,
		rec.Code,
		rec.Rounds,
		rec.WinnerID,
		rec.WinnerName,
		playersJSON,
		rec.FinishedAt,
	)
	return err
}

// GameSummary is one finished game for the history endpoint.
type GameSummary struct {
	GameID     string        `json:"game_id"`
	Code       string        `json:"code"`
	Rounds     int           `json:"rounds"`
	WinnerID   string        `json:"winner_id,omitempty"`
	WinnerName string        `json:"winner_name,omitempty"`
	Players    []game.Player `json:"players"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RecentGames returns the latest finished games, newest first.
func (r *ResultsRepository) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT game_id, code, rounds, winner_id, winner_name, players, finished_at
		 FROM game_results
		 ORDER BY finished_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GameSummary
	for rows.Next() {
		var (
			gs          GameSummary
			playersJSON []byte
		)
		if err := rows.Scan(
			&gs.GameID, &gs.Code, &gs.Rounds, &gs.WinnerID, &gs.WinnerName,
			&playersJSON, &gs.FinishedAt,
		); err != nil {
			return nil, err
		}
		if len(playersJSON) > 0 {
			_ = json.Unmarshal(playersJSON, &gs.Players)
		}
		result = append(result, gs)
	}

	return result, rows.Err()
}

// RoundSummary is one stored round of a finished game.
type RoundSummary struct {
	Round       int                `json:"round"`
	Sentence    string             `json:"sentence"`
	FirstPlace  string             `json:"first_place,omitempty"`
	SecondPlace string             `json:"second_place,omitempty"`
	AutoPicked  bool               `json:"auto_picked"`
	Images      []game.ImageResult `json:"images"`
	PlayedAt    time.Time          `json:"played_at"`
}

// GameRounds returns the stored rounds of one game in play order.
func (r *ResultsRepository) GameRounds(ctx context.Context, gameID string) ([]RoundSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT round, sentence, first_place, second_place, auto_picked, images, played_at
		 FROM round_results
		 WHERE game_id = $1
		 ORDER BY round ASC`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RoundSummary
	for rows.Next() {
		var (
			rs         RoundSummary
			imagesJSON []byte
		)
		if err := rows.Scan(
			&rs.Round, &rs.Sentence, &rs.FirstPlace, &rs.SecondPlace,
			&rs.AutoPicked, &imagesJSON, &rs.PlayedAt,
		); err != nil {
			return nil, err
		}
		if len(imagesJSON) > 0 {
			_ = json.Unmarshal(imagesJSON, &rs.Images)
		}
		result = append(result, rs)
	}

	return result, rows.Err()
}
