package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchingColumns = `id, learner_id, tutor_id, learner_name, tutor_name, status, contact_date, followup_at, feedback, updated_at`

type MatchingRepository struct {
	*base.Repository
}

func NewMatchingRepository(pool *pgxpool.Pool) *MatchingRepository {
	return &MatchingRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт заявку
func (r *MatchingRepository) Create(ctx context.Context, m *model.Matching) error {
	query := `
		INSERT INTO matchings (id, learner_id, tutor_id, learner_name, tutor_name, status, contact_date, followup_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.Pool().Exec(
		ctx, query,
		m.ID,
		m.LearnerID,
		m.TutorID,
		m.LearnerName,
		m.TutorName,
		m.Status,
		m.ContactDate,
		m.FollowupAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create matching: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *MatchingRepository) GetByID(ctx context.Context, id string) (*model.Matching, error) {
	query := `SELECT ` + matchingColumns + ` FROM matchings WHERE id = $1`

	m, err := scanMatching(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get matching by id: %w", err)
	}

	return m, nil
}

// GetActiveByPair получает незавершённую заявку ученика к репетитору
func (r *MatchingRepository) GetActiveByPair(ctx context.Context, learnerID, tutorID string) (*model.Matching, error) {
	query := `
		SELECT ` + matchingColumns + `
		FROM matchings
		WHERE learner_id = $1 AND tutor_id = $2 AND status NOT IN ('confirmed', 'refused')
		LIMIT 1
	`

	m, err := scanMatching(r.QueryRow(ctx, query, learnerID, tutorID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active matching by pair: %w", err)
	}

	return m, nil
}

// GetLatestByPair получает последнюю заявку между двумя пользователями в любом направлении
func (r *MatchingRepository) GetLatestByPair(ctx context.Context, userA, userB string) (*model.Matching, error) {
	query := `
		SELECT ` + matchingColumns + `
		FROM matchings
		WHERE (learner_id = $1 AND tutor_id = $2) OR (learner_id = $2 AND tutor_id = $1)
		ORDER BY contact_date DESC
		LIMIT 1
	`

	m, err := scanMatching(r.QueryRow(ctx, query, userA, userB))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest matching by pair: %w", err)
	}

	return m, nil
}

// ListByUser получает заявки, где пользователь ученик или репетитор
func (r *MatchingRepository) ListByUser(ctx context.Context, userID string) ([]*model.Matching, error) {
	query := `
		SELECT ` + matchingColumns + `
		FROM matchings
		WHERE learner_id = $1 OR tutor_id = $1
		ORDER BY contact_date DESC
	`

	return r.list(ctx, "list matchings by user", query, userID)
}

// ListDueFollowups получает открытые заявки, по которым пора напомнить
func (r *MatchingRepository) ListDueFollowups(ctx context.Context, now time.Time) ([]*model.Matching, error) {
	query := `
		SELECT ` + matchingColumns + `
		FROM matchings
		WHERE status IN ('open', 'continued') AND followup_at <= $1
		ORDER BY followup_at ASC
	`

	return r.list(ctx, "list due followups", query, now)
}

// ListDueFollowupsByLearner то же самое для одного ученика
func (r *MatchingRepository) ListDueFollowupsByLearner(ctx context.Context, learnerID string, now time.Time) ([]*model.Matching, error) {
	query := `
		SELECT ` + matchingColumns + `
		FROM matchings
		WHERE learner_id = $1 AND status IN ('open', 'continued') AND followup_at <= $2
		ORDER BY followup_at ASC
	`

	return r.list(ctx, "list due followups by learner", query, learnerID, now)
}

// UpdateState сохраняет статус, напоминание и отзыв, если статус в базе всё ещё prev
func (r *MatchingRepository) UpdateState(ctx context.Context, m *model.Matching, prev model.MatchingStatus) error {
	query := `
		UPDATE matchings
		SET status = $1, followup_at = $2, feedback = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	err := r.ExecOne(ctx, query, m.Status, m.FollowupAt, m.Feedback, m.UpdatedAt, m.ID, prev)
	if err != nil {
		return fmt.Errorf("update matching state: %w", err)
	}

	return nil
}

// SnoozeFollowup откладывает напоминание по ещё открытой заявке
func (r *MatchingRepository) SnoozeFollowup(ctx context.Context, id string, next time.Time) error {
	query := `
		UPDATE matchings
		SET followup_at = $1
		WHERE id = $2 AND status IN ('open', 'continued')
	`

	if err := r.ExecOne(ctx, query, next, id); err != nil {
		return fmt.Errorf("snooze matching followup: %w", err)
	}

	return nil
}

func (r *MatchingRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*model.Matching, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var matchings []*model.Matching
	for rows.Next() {
		m, err := scanMatching(rows)
		if err != nil {
			return nil, fmt.Errorf("scan matching: %w", err)
		}
		matchings = append(matchings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matchings: %w", err)
	}

	return matchings, nil
}

func scanMatching(row pgx.Row) (*model.Matching, error) {
	var m model.Matching
	err := row.Scan(
		&m.ID,
		&m.LearnerID,
		&m.TutorID,
		&m.LearnerName,
		&m.TutorName,
		&m.Status,
		&m.ContactDate,
		&m.FollowupAt,
		&m.Feedback,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
