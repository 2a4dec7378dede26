package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"thyrd_spaces/internal/domain"
)

// errDupEntry is MySQL's ER_DUP_ENTRY.
const errDupEntry = 1062

const (
	defaultLimit = 50
	dateLayout   = "1/2/2006"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func valTags(tags []string) any {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func limitOf(pg domain.PageQuery) int {
	if pg.Limit <= 0 {
		return defaultLimit
	}
	return pg.Limit
}

// sourceID keys a synced review for (space_id, source_id) dedupe. Reviews
// without an upstream id get a content hash, since NULL never collides in
// a MySQL unique key.
func sourceID(rv domain.Review) string {
	if rv.ID != 0 {
		return strconv.FormatInt(rv.ID, 10)
	}
	h := sha1.New()
	for _, part := range []string{rv.Author, rv.Title, rv.Text, rv.Date, strconv.Itoa(rv.Rating)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "h:" + hex.EncodeToString(h.Sum(nil))
}

func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) CreateSpace(ctx context.Context, s domain.NewSpace) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertSpaceSQL,
		s.Name,
		valStr(s.Description),
		valTags(s.Tags),
		valStr(s.ImageRef),
		valStr(s.LocationRef),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpsertSpace stores a synced space and any reviews that came with it.
func (r *Repo) UpsertSpace(ctx context.Context, s domain.Space) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertSpaceSQL,
		s.ID,
		s.Name,
		valStr(s.Description),
		valTags(s.Tags),
		valStr(s.ImageRef),
		valStr(s.LocationRef),
		valTime(s.CreatedAt),
	); err != nil {
		return err
	}

	if len(s.Reviews) > 0 {
		values := make([]string, 0, len(s.Reviews))
		args := make([]any, 0, len(s.Reviews)*7) // 7 params per row
		for _, rv := range s.Reviews {
			values = append(values, "(?,?,?,?,?,?,COALESCE(?, CURRENT_TIMESTAMP(3)))")
			args = append(args,
				s.ID,            // space_id
				sourceID(rv),    // source_id
				rv.Author,       // author
				rv.Title,        // title
				valStr(rv.Text), // text
				rv.Rating,       // rating
				valTime(rv.CreatedAt),
			)
		}
		q := upsertReviewsPrefix + strings.Join(values, ",") + upsertReviewsOnDup
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) AddReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.SpaceID, rv.Author, rv.Title, valStr(rv.Text), rv.Rating, valTime(rv.CreatedAt))
	if err != nil {
		return domain.Review{}, err
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return domain.Review{}, err
	}
	rv.Date = rv.CreatedAt.Format(dateLayout)
	return rv, nil
}

func (r *Repo) AddReflection(ctx context.Context, rf domain.Reflection) (domain.Reflection, error) {
	if rf.CreatedAt.IsZero() {
		rf.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, insertReflectionSQL,
		rf.SpaceID, rf.Author, rf.Title, valStr(rf.Text), valTime(rf.CreatedAt))
	if err != nil {
		return domain.Reflection{}, err
	}
	if rf.ID, err = res.LastInsertId(); err != nil {
		return domain.Reflection{}, err
	}
	rf.Date = rf.CreatedAt.Format(dateLayout)
	return rf, nil
}

func (r *Repo) CreateUser(ctx context.Context, email, username string) (domain.User, error) {
	res, err := r.db.ExecContext(ctx, insertUserSQL, email, username)
	if err != nil {
		if isDuplicate(err) {
			return domain.User{}, domain.ErrDuplicate
		}
		return domain.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: id, Email: email, Username: username}, nil
}

func (r *Repo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, id, status, reason)
	return err
}

type scanner interface{ Scan(dest ...any) error }

func scanSpace(row scanner) (domain.Space, error) {
	var (
		s                     domain.Space
		desc, photo, location sql.NullString
		tagsJSON              []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &desc, &tagsJSON, &photo, &location, &s.CreatedAt); err != nil {
		return domain.Space{}, err
	}
	s.Description = desc.String
	s.ImageRef = photo.String
	s.LocationRef = location.String
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &s.Tags)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	s.Reviews = []domain.Review{}
	return s, nil
}

func (r *Repo) GetSpace(ctx context.Context, id int64) (domain.Space, error) {
	s, err := scanSpace(r.db.QueryRowContext(ctx, getSpaceSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Space{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	rows, err := r.db.QueryContext(ctx, listSpacesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Space{}
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, id, limitOf(pg))
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var (
			rv   domain.Review
			text sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.SpaceID, &rv.Author, &rv.Title, &text, &rv.Rating, &rv.CreatedAt); err != nil {
			return domain.ReviewsPage{}, err
		}
		rv.Text = text.String
		rv.Date = rv.CreatedAt.Format(dateLayout)
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: out}, nil
}

func (r *Repo) ReviewTotals(ctx context.Context, id int64) (domain.RatingTotals, error) {
	var t domain.RatingTotals
	if err := r.db.QueryRowContext(ctx, reviewTotalsSQL, id).Scan(&t.Count, &t.Sum); err != nil {
		return domain.RatingTotals{}, err
	}
	return t, nil
}

func (r *Repo) ListReflections(ctx context.Context, id int64, pg domain.PageQuery) ([]domain.Reflection, error) {
	rows, err := r.db.QueryContext(ctx, listReflectionsSQL, id, limitOf(pg))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Reflection{}
	for rows.Next() {
		var (
			rf   domain.Reflection
			text sql.NullString
		)
		if err := rows.Scan(&rf.ID, &rf.SpaceID, &rf.Author, &rf.Title, &text, &rf.CreatedAt); err != nil {
			return nil, err
		}
		rf.Text = text.String
		rf.Date = rf.CreatedAt.Format(dateLayout)
		out = append(out, rf)
	}
	return out, rows.Err()
}

func (r *Repo) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, findUserSQL, email).Scan(&u.ID, &u.Email, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}
