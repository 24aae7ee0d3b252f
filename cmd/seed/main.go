package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"learnhub/internal/config"
	"learnhub/internal/database"
	"learnhub/internal/domain"
	"learnhub/internal/logger"
	"learnhub/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const seedFilePath = "configs/seed_data/sample_course.json"

// Seed file shapes. One course per top-level entry.
type seedCourse struct {
	Title  string      `json:"title"`
	Users  []seedUser  `json:"users"`
	Levels []seedLevel `json:"levels"`
}

type seedUser struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type seedLevel struct {
	Title    string        `json:"title"`
	Sections []seedSection `json:"sections"`
}

type seedSection struct {
	Title    string        `json:"title"`
	Contents []seedContent `json:"contents"`
	Quiz     *seedQuiz     `json:"quiz,omitempty"`
}

type seedContent struct {
	Title string `json:"title"`
}

type seedQuiz struct {
	Title               string         `json:"title"`
	MaxAttempts         int            `json:"max_attempts"`
	PassingScorePercent float64        `json:"passing_score_percent"`
	TimeLimitMinutes    int            `json:"time_limit_minutes"`
	Questions           []seedQuestion `json:"questions"`
}

type seedQuestion struct {
	Text        string   `json:"text"`
	Type        string   `json:"type"`
	Points      int      `json:"points"`
	Options     []string `json:"options,omitempty"`
	CorrectIdx  int      `json:"correct_idx"`
	CorrectBool *bool    `json:"correct_bool,omitempty"`
}

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	log.Info("Starting initial data seeding process...")
	db, err := database.NewSQLXPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	byteValue, err := os.ReadFile(seedFilePath)
	if err != nil {
		log.Fatal("Failed to read seed file", zap.String("path", seedFilePath), zap.Error(err))
	}

	var courses []seedCourse
	if err := json.Unmarshal(byteValue, &courses); err != nil {
		log.Fatal("Failed to unmarshal seed data", zap.Error(err))
	}
	log.Info("Seed data loaded", zap.Int("courses", len(courses)))

	for _, sc := range courses {
		if err := seedCourseData(ctx, db, log, sc); err != nil {
			log.Error("Error seeding course, transaction rolled back", zap.String("course", sc.Title), zap.Error(err))
		}
	}
	log.Info("Initial data seeding process completed.")
}

func seedCourseData(ctx context.Context, db *sqlx.DB, log *zap.Logger, sc seedCourse) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	courseID := util.NewULID()

	for _, su := range sc.Users {
		userID := util.NewULID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, role, created_at) VALUES ($1, $2, $3, $4)`,
			userID, su.Name, su.Role, now); err != nil {
			return fmt.Errorf("failed to insert user %q: %w", su.Name, err)
		}
		if domain.Role(su.Role) == domain.RoleStudent {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO enrollments (id, user_id, course_id, enrolled_at) VALUES ($1, $2, $3, $4)`,
				util.NewULID(), userID, courseID, now); err != nil {
				return fmt.Errorf("failed to enroll user %q: %w", su.Name, err)
			}
		}
	}

	for li, sl := range sc.Levels {
		levelID, err := insertNode(ctx, tx, courseID, nil, domain.NodeKindLevel, sl.Title, li+1, now)
		if err != nil {
			return err
		}
		for si, ss := range sl.Sections {
			sectionID, err := insertNode(ctx, tx, courseID, &levelID, domain.NodeKindSection, ss.Title, si+1, now)
			if err != nil {
				return err
			}
			for ci, scn := range ss.Contents {
				if _, err := insertNode(ctx, tx, courseID, &sectionID, domain.NodeKindContent, scn.Title, ci+1, now); err != nil {
					return err
				}
			}
			if ss.Quiz != nil {
				if err := insertQuiz(ctx, tx, courseID, sectionID, *ss.Quiz, now); err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	log.Info("Course seeded", zap.String("course", sc.Title), zap.String("course_id", courseID))
	return nil
}

func insertNode(ctx context.Context, tx *sqlx.Tx, courseID string, parentID *string, kind domain.NodeKind, title string, orderKey int, now time.Time) (string, error) {
	id := util.NewULID()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO hierarchy_nodes (id, course_id, parent_id, kind, title, order_key, is_visible, is_deleted, requires_previous, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, FALSE, TRUE, $7, $7)`,
		id, courseID, parentID, kind, title, orderKey, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert %s node %q: %w", kind, title, err)
	}
	return id, nil
}

func insertQuiz(ctx context.Context, tx *sqlx.Tx, courseID, sectionID string, sq seedQuiz, now time.Time) error {
	quizID := util.NewULID()
	// An omitted time limit stays NULL so the quiz never expires.
	var timeLimit sql.NullInt64
	if sq.TimeLimitMinutes > 0 {
		timeLimit = sql.NullInt64{Int64: int64(sq.TimeLimitMinutes), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, course_id, section_id, kind, title, max_attempts, passing_score_percent, time_limit_minutes, is_active, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, FALSE, $9, $9)`,
		quizID, courseID, sectionID, domain.QuizKindSection, sq.Title, sq.MaxAttempts, sq.PassingScorePercent, timeLimit, now)
	if err != nil {
		return fmt.Errorf("failed to insert quiz %q: %w", sq.Title, err)
	}

	for qi, q := range sq.Questions {
		questionID := util.NewULID()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, type, text, points, correct_bool, order_key, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			questionID, quizID, q.Type, q.Text, q.Points, q.CorrectBool, qi+1, now)
		if err != nil {
			return fmt.Errorf("failed to insert question %q: %w", q.Text, err)
		}
		for oi, opt := range q.Options {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO question_options (id, question_id, text, is_correct, order_key)
				 VALUES ($1, $2, $3, $4, $5)`,
				util.NewULID(), questionID, opt, oi == q.CorrectIdx, oi+1)
			if err != nil {
				return fmt.Errorf("failed to insert option %q: %w", opt, err)
			}
		}
	}
	return nil
}
