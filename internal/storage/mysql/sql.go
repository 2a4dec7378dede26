package mysql

const insertSpaceSQL = `
INSERT INTO spaces (name, description, tags, photo_url, location_data)
VALUES (?, ?, ?, ?, ?)
`

// Upstream ids are kept so repeated syncs land on the same row.
const upsertSpaceSQL = `
INSERT INTO spaces
  (id, name, description, tags, photo_url, location_data, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))
ON DUPLICATE KEY UPDATE
  name          = VALUES(name),
  description   = VALUES(description),
  tags          = VALUES(tags),
  photo_url     = VALUES(photo_url),
  location_data = VALUES(location_data),
  updated_at    = CURRENT_TIMESTAMP(3)
`

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewSQL = "INSERT INTO reviews\n  (space_id, author, title, `text`, rating, created_at)\nVALUES (?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))"

// Synced reviews are keyed by (space_id, source_id); COALESCE keeps old values if new are NULL.
const upsertReviewsPrefix = "INSERT INTO reviews\n  (space_id, source_id, author, title, `text`, rating, created_at)\nVALUES "

const upsertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author = COALESCE(VALUES(author), reviews.author),\n" +
	"  title  = COALESCE(VALUES(title), reviews.title),\n" +
	"  `text` = COALESCE(VALUES(`text`), reviews.`text`),\n" +
	"  rating = VALUES(rating)\n"

const insertReflectionSQL = "INSERT INTO reflections\n  (space_id, author, title, `text`, created_at)\nVALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))"

const insertUserSQL = `INSERT INTO users (email, username) VALUES (?, ?)`

const insertMissSQL = `
INSERT INTO ingest_misses (id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP(3)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const spaceColumns = `id, name, description, tags, photo_url, location_data, created_at`

const getSpaceSQL = `SELECT ` + spaceColumns + ` FROM spaces WHERE id = ?`

// Newest first, as the directory lists them.
const listSpacesSQL = `SELECT ` + spaceColumns + ` FROM spaces ORDER BY created_at DESC, id DESC`

const listReviewsSQL = "SELECT id, space_id, author, title, `text`, rating, created_at\n" +
	"FROM reviews\nWHERE space_id = ?\nORDER BY created_at DESC, id DESC\nLIMIT ?"

// Aggregated over every positive rating, independent of any list limit.
const reviewTotalsSQL = "SELECT COUNT(*), COALESCE(SUM(rating), 0)\n" +
	"FROM reviews\nWHERE space_id = ? AND rating > 0"

const listReflectionsSQL = "SELECT id, space_id, author, title, `text`, created_at\n" +
	"FROM reflections\nWHERE space_id = ?\nORDER BY created_at DESC, id DESC\nLIMIT ?"

const findUserSQL = `SELECT id, email, username FROM users WHERE email = ?`
