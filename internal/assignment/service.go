package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"testportal/internal/testpool"
)

var (
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrAlreadyAssigned        = errors.New("test already assigned to student")
	ErrAssignmentNotCompleted = errors.New("assignment not completed")
	ErrInvalidOption          = errors.New("invalid answer option")
	ErrQuestionOutOfRange     = errors.New("question number out of range")
)

// Assignment statuses. The machine only moves forward:
// pending -> in_progress -> completed.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type DefinitionSource interface {
	GetByID(ctx context.Context, id int64) (*testpool.Definition, error)
	FindActiveByCode(ctx context.Context, code string) (*testpool.Definition, error)
}

type Assignment struct {
	StudentID   int64      `json:"student_id"`
	TestID      int64      `json:"test_id"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	Score       *float64   `json:"score,omitempty"`
	Correct     *int       `json:"correct,omitempty"`
	Incorrect   *int       `json:"incorrect,omitempty"`
	Blank       *int       `json:"blank,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Result struct {
	Assignment Assignment  `json:"assignment"`
	Score      ScoreResult `json:"score"`
}

type Service struct {
	db   *sql.DB
	defs DefinitionSource
}

func NewService(db *sql.DB, defs DefinitionSource) *Service {
	return &Service{db: db, defs: defs}
}

// Assign creates a pending assignment of a test to a student, with an
// optional display-name override.
func (s *Service) Assign(ctx context.Context, studentID, testID int64, customName string) (*Assignment, error) {
	def, err := s.defs.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !def.Active {
		return nil, testpool.ErrTestNotFound
	}

	var custom interface{}
	if trimmed := strings.TrimSpace(customName); trimmed != "" {
		custom = trimmed
	}

	a := &Assignment{StudentID: studentID, TestID: def.ID, Status: StatusPending}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO assignments (student_id, test_id, custom_name, status, assigned_at)
		VALUES ($1, $2, $3, 'pending', now())
		RETURNING COALESCE(custom_name, $4), assigned_at
	`, studentID, def.ID, custom, def.Name).Scan(&a.DisplayName, &a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

// AssignByCode resolves an active test by its code and assigns it.
func (s *Service) AssignByCode(ctx context.Context, studentID int64, code, customName string) (*Assignment, error) {
	def, err := s.defs.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.Assign(ctx, studentID, def.ID, customName)
}

// RecordAnswer upserts one submitted answer. The first answer moves a
// pending assignment to in_progress; later answers leave status alone.
func (s *Service) RecordAnswer(ctx context.Context, studentID, testID int64, questionNo int, option string) error {
	status, err := s.loadStatus(ctx, studentID, testID)
	if err != nil {
		return err
	}

	def, err := s.defs.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if questionNo < 1 || questionNo > def.QuestionCount {
		return fmt.Errorf("%w: %d not in 1..%d", ErrQuestionOutOfRange, questionNo, def.QuestionCount)
	}
	opt := strings.ToUpper(strings.TrimSpace(option))
	switch opt {
	case "A", "B", "C", "D", "E":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOption, option)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO student_answers (student_id, test_id, question_no, selected_option, submitted_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (student_id, test_id, question_no)
		DO UPDATE SET
			selected_option = EXCLUDED.selected_option,
			submitted_at = now()
	`, studentID, testID, questionNo, opt)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}

	if status == StatusPending {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE assignments
			SET status = 'in_progress'
			WHERE student_id = $1 AND test_id = $2 AND status = 'pending'
		`, studentID, testID); err != nil {
			return fmt.Errorf("advance assignment status: %w", err)
		}
	}
	return nil
}

// Complete evaluates all recorded answers and stores the result.
// Completing an already-completed assignment re-scores in place and
// keeps the original completion timestamp.
func (s *Service) Complete(ctx context.Context, studentID, testID int64) (*Result, error) {
	return s.finalize(ctx, studentID, testID, false)
}

// Recompute re-runs the evaluator over currently stored answers without
// touching status or timestamps. Used after answer-key corrections.
func (s *Service) Recompute(ctx context.Context, studentID, testID int64) (*Result, error) {
	return s.finalize(ctx, studentID, testID, true)
}

func (s *Service) finalize(ctx context.Context, studentID, testID int64, recomputeOnly bool) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	if err := tx.QueryRowContext(ctx, `
		SELECT status
		FROM assignments
		WHERE student_id = $1 AND test_id = $2
		FOR UPDATE
	`, studentID, testID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("lock assignment: %w", err)
	}
	if recomputeOnly && status != StatusCompleted {
		return nil, ErrAssignmentNotCompleted
	}

	def, err := s.defs.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswersTx(ctx, tx, studentID, testID)
	if err != nil {
		return nil, err
	}

	score, err := Score(def, answers)
	if err != nil {
		return nil, err
	}

	if recomputeOnly {
		_, err = tx.ExecContext(ctx, `
			UPDATE assignments
			SET score = $3,
				correct_count = $4,
				wrong_count = $5,
				blank_count = $6
			WHERE student_id = $1 AND test_id = $2
		`, studentID, testID, score.Percentage, score.Correct, score.Incorrect, score.Blank)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE assignments
			SET status = 'completed',
				score = $3,
				correct_count = $4,
				wrong_count = $5,
				blank_count = $6,
				completed_at = COALESCE(completed_at, now())
			WHERE student_id = $1 AND test_id = $2
		`, studentID, testID, score.Percentage, score.Correct, score.Incorrect, score.Blank)
	}
	if err != nil {
		return nil, fmt.Errorf("store assignment result: %w", err)
	}

	a, err := s.loadAssignmentTx(ctx, tx, studentID, testID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize: %w", err)
	}
	return &Result{Assignment: *a, Score: *score}, nil
}

// GetResult re-runs the evaluator over the stored answers of a
// completed assignment. The output matches the stored aggregates unless
// the answer key changed since completion; Recompute converges them.
func (s *Service) GetResult(ctx context.Context, studentID, testID int64) (*Result, error) {
	a, err := s.loadAssignment(ctx, studentID, testID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusCompleted {
		return nil, ErrAssignmentNotCompleted
	}

	def, err := s.defs.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswers(ctx, studentID, testID)
	if err != nil {
		return nil, err
	}
	score, err := Score(def, answers)
	if err != nil {
		return nil, err
	}
	return &Result{Assignment: *a, Score: *score}, nil
}

func (s *Service) ListForStudent(ctx context.Context, studentID int64) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.student_id, a.test_id,
			COALESCE(a.custom_name, t.name),
			a.status, a.score, a.correct_count, a.wrong_count, a.blank_count,
			a.assigned_at, a.completed_at
		FROM assignments a
		INNER JOIN test_pool t ON t.id = a.test_id
		WHERE a.student_id = $1 AND t.is_active = TRUE
		ORDER BY a.assigned_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

const assignmentSelect = `
	SELECT a.student_id, a.test_id,
		COALESCE(a.custom_name, t.name),
		a.status, a.score, a.correct_count, a.wrong_count, a.blank_count,
		a.assigned_at, a.completed_at
	FROM assignments a
	INNER JOIN test_pool t ON t.id = a.test_id
	WHERE a.student_id = $1 AND a.test_id = $2
`

func (s *Service) loadAssignment(ctx context.Context, studentID, testID int64) (*Assignment, error) {
	return scanAssignment(s.db.QueryRowContext(ctx, assignmentSelect, studentID, testID).Scan)
}

func (s *Service) loadAssignmentTx(ctx context.Context, tx *sql.Tx, studentID, testID int64) (*Assignment, error) {
	return scanAssignment(tx.QueryRowContext(ctx, assignmentSelect, studentID, testID).Scan)
}

func scanAssignment(scan func(...interface{}) error) (*Assignment, error) {
	var (
		a           Assignment
		score       sql.NullFloat64
		correct     sql.NullInt64
		wrong       sql.NullInt64
		blank       sql.NullInt64
		completedAt sql.NullTime
	)
	err := scan(
		&a.StudentID, &a.TestID, &a.DisplayName, &a.Status,
		&score, &correct, &wrong, &blank,
		&a.AssignedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	if score.Valid {
		a.Score = &score.Float64
	}
	if correct.Valid {
		v := int(correct.Int64)
		a.Correct = &v
	}
	if wrong.Valid {
		v := int(wrong.Int64)
		a.Incorrect = &v
	}
	if blank.Valid {
		v := int(blank.Int64)
		a.Blank = &v
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

func (s *Service) loadStatus(ctx context.Context, studentID, testID int64) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status
		FROM assignments
		WHERE student_id = $1 AND test_id = $2
	`, studentID, testID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrAssignmentNotFound
		}
		return "", fmt.Errorf("load assignment status: %w", err)
	}
	return status, nil
}

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *Service) loadAnswers(ctx context.Context, studentID, testID int64) (map[int]string, error) {
	return loadAnswers(ctx, s.db, studentID, testID)
}

func (s *Service) loadAnswersTx(ctx context.Context, tx *sql.Tx, studentID, testID int64) (map[int]string, error) {
	return loadAnswers(ctx, tx, studentID, testID)
}

func loadAnswers(ctx context.Context, q queryable, studentID, testID int64) (map[int]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT question_no, selected_option
		FROM student_answers
		WHERE student_id = $1 AND test_id = $2
	`, studentID, testID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[int]string)
	for rows.Next() {
		var (
			number int
			option string
		)
		if err := rows.Scan(&number, &option); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers[number] = option
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return answers, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
