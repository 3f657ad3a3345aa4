package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrNumberExists    = errors.New("student number already exists")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service struct {
	db         *sql.DB
	bcryptCost int
}

type Student struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateStudentInput struct {
	Number    string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, bcryptCost: bcrypt.DefaultCost}
}

func (s *Service) Create(ctx context.Context, in CreateStudentInput) (*Student, error) {
	number := strings.TrimSpace(in.Number)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if number == "" || firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: number, first_name, last_name are required", ErrInvalidInput)
	}

	// New students without an explicit password start with their number;
	// the portal forces a change on first login.
	password := strings.TrimSpace(in.Password)
	if password == "" {
		password = number
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st := &Student{Number: number, FirstName: firstName, LastName: lastName, Email: strings.TrimSpace(in.Email)}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO students (number, first_name, last_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, number, firstName, lastName, st.Email, string(hash)).Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNumberExists
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return st, nil
}

func (s *Service) FindByNumber(ctx context.Context, number string) (*Student, error) {
	var st Student
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, first_name, last_name, email, created_at
		FROM students
		WHERE number = $1
	`, strings.TrimSpace(number)).Scan(&st.ID, &st.Number, &st.FirstName, &st.LastName, &st.Email, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("find student by number: %w", err)
	}
	return &st, nil
}

func (s *Service) List(ctx context.Context, q string, limit, offset int) ([]Student, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + strings.TrimSpace(q) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, first_name, last_name, email, created_at
		FROM students
		WHERE $1 = '%%' OR number ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
		ORDER BY number
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := make([]Student, 0)
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Number, &st.FirstName, &st.LastName, &st.Email, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
