package testpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// slotColumns returns "answer_1, ..., answer_25, video_1, ..., video_25".
func slotColumns() string {
	cols := make([]string, 0, MaxQuestions*2)
	for i := 1; i <= MaxQuestions; i++ {
		cols = append(cols, fmt.Sprintf("answer_%d", i))
	}
	for i := 1; i <= MaxQuestions; i++ {
		cols = append(cols, fmt.Sprintf("video_%d", i))
	}
	return strings.Join(cols, ", ")
}

func (s *Service) Insert(ctx context.Context, def *Definition) (*Definition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, 3+MaxQuestions*2)
	args = append(args, strings.TrimSpace(def.Code), strings.TrimSpace(def.Name), def.QuestionCount)
	for i := 1; i <= MaxQuestions; i++ {
		if opt := def.CorrectOption(i); opt != "" {
			args = append(args, opt)
		} else {
			args = append(args, nil)
		}
	}
	for i := 1; i <= MaxQuestions; i++ {
		if link, ok := def.ReferenceLinks[i]; ok && strings.TrimSpace(link) != "" {
			args = append(args, strings.TrimSpace(link))
		} else {
			args = append(args, nil)
		}
	}

	placeholders := make([]string, len(args))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO test_pool (code, name, question_count, %s, is_active, created_at)
		VALUES (%s, TRUE, now())
		RETURNING id, created_at
	`, slotColumns(), strings.Join(placeholders, ", "))

	out := *def
	out.Active = true
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&out.ID, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, fmt.Errorf("insert test definition: %w", err)
	}
	return &out, nil
}

// FindActiveByCode looks a definition up by its canonical code among
// active rows. Returns ErrTestNotFound when no active row matches.
func (s *Service) FindActiveByCode(ctx context.Context, code string) (*Definition, error) {
	canonical := CanonicalCode(code)
	if canonical == "" {
		return nil, ErrTestNotFound
	}
	query := fmt.Sprintf(`
		SELECT id, code, name, question_count, %s, is_active, created_at
		FROM test_pool
		WHERE upper(code) = $1 AND is_active = TRUE
	`, slotColumns())
	return s.scanDefinition(s.db.QueryRowContext(ctx, query, canonical))
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Definition, error) {
	query := fmt.Sprintf(`
		SELECT id, code, name, question_count, %s, is_active, created_at
		FROM test_pool
		WHERE id = $1
	`, slotColumns())
	return s.scanDefinition(s.db.QueryRowContext(ctx, query, id))
}

func (s *Service) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, question_count, is_active, created_at
		FROM test_pool
		WHERE is_active = TRUE
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	out := make([]Definition, 0)
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.QuestionCount, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan test row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tests: %w", err)
	}
	return out, nil
}

// Deactivate soft-deletes a definition. Completed results keep pointing
// at the row; it simply stops matching active-code lookups.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE test_pool
		SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate test: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate test rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTestNotFound
	}
	return nil
}

func (s *Service) scanDefinition(row *sql.Row) (*Definition, error) {
	var (
		d       Definition
		answers [MaxQuestions]sql.NullString
		videos  [MaxQuestions]sql.NullString
	)

	dest := make([]interface{}, 0, 6+MaxQuestions*2)
	dest = append(dest, &d.ID, &d.Code, &d.Name, &d.QuestionCount)
	for i := range answers {
		dest = append(dest, &answers[i])
	}
	for i := range videos {
		dest = append(dest, &videos[i])
	}
	dest = append(dest, &d.Active, &d.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("scan test definition: %w", err)
	}

	d.AnswerKey = make([]AnswerKeyEntry, 0, d.QuestionCount)
	d.ReferenceLinks = make(map[int]string)
	for i := 0; i < MaxQuestions; i++ {
		number := i + 1
		if answers[i].Valid && strings.TrimSpace(answers[i].String) != "" {
			d.AnswerKey = append(d.AnswerKey, AnswerKeyEntry{Number: number, Option: strings.TrimSpace(answers[i].String)})
		}
		if videos[i].Valid && strings.TrimSpace(videos[i].String) != "" {
			d.ReferenceLinks[number] = strings.TrimSpace(videos[i].String)
		}
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
