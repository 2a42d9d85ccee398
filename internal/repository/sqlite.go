package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pollwave/pollwave/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (needed for poll delete cascades)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS fingerprints (
			id TEXT PRIMARY KEY,
			hash TEXT UNIQUE NOT NULL,
			ip TEXT NOT NULL,
			user_agent TEXT,
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL,
			blocked BOOLEAN NOT NULL DEFAULT 0,
			block_reason TEXT,
			blocked_by TEXT,
			blocked_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT,
			password_hash TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			last_login_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS polls (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			question TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			multiple_answers BOOLEAN NOT NULL DEFAULT 0,
			show_results BOOLEAN NOT NULL DEFAULT 1,
			organizer_id TEXT,
			created_at DATETIME NOT NULL,
			closed_at DATETIME,
			closed_by TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS poll_options (
			id TEXT PRIMARY KEY,
			poll_id TEXT NOT NULL,
			text TEXT NOT NULL,
			order_num INTEGER NOT NULL,
			FOREIGN KEY (poll_id) REFERENCES polls(id) ON DELETE CASCADE,
			UNIQUE(poll_id, order_num)
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			poll_id TEXT NOT NULL,
			option_id TEXT,
			fingerprint_id TEXT NOT NULL,
			text_answer TEXT,
			voted_at DATETIME NOT NULL,
			FOREIGN KEY (poll_id) REFERENCES polls(id) ON DELETE CASCADE,
			FOREIGN KEY (option_id) REFERENCES poll_options(id) ON DELETE CASCADE,
			FOREIGN KEY (fingerprint_id) REFERENCES fingerprints(id),
			UNIQUE(poll_id, fingerprint_id)
		)`,
		`CREATE TABLE IF NOT EXISTS iot_devices (
			id TEXT PRIMARY KEY,
			kiosk_id TEXT UNIQUE NOT NULL,
			location TEXT,
			device_type TEXT NOT NULL DEFAULT 'KIOSK',
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			last_sync DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS iot_device_configs (
			id TEXT PRIMARY KEY,
			device_id TEXT UNIQUE NOT NULL,
			poll_interval_ms INTEGER NOT NULL,
			display_timeout_ms INTEGER NOT NULL,
			confidence_threshold REAL NOT NULL,
			anomaly_threshold REAL NOT NULL,
			smoothing_alpha REAL NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT 1,
			config_version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (device_id) REFERENCES iot_devices(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS iot_votes (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			poll_id TEXT NOT NULL,
			option_id TEXT,
			option_ids TEXT,
			rating INTEGER,
			text_answer TEXT,
			voting_time_ms INTEGER NOT NULL,
			confidence REAL NOT NULL,
			anomaly_score REAL NOT NULL,
			entropy REAL NOT NULL,
			suspicious BOOLEAN NOT NULL DEFAULT 0,
			validation_status TEXT NOT NULL,
			analysis TEXT,
			device_metadata TEXT,
			voted_at DATETIME NOT NULL,
			FOREIGN KEY (device_id) REFERENCES iot_devices(id),
			FOREIGN KEY (poll_id) REFERENCES polls(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS admin_logs (
			id TEXT PRIMARY KEY,
			admin_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			description TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_poll ON votes(poll_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_fingerprint ON votes(fingerprint_id)`,
		`CREATE INDEX IF NOT EXISTS idx_options_poll ON poll_options(poll_id)`,
		`CREATE INDEX IF NOT EXISTS idx_iot_votes_device ON iot_votes(device_id)`,
		`CREATE INDEX IF NOT EXISTS idx_iot_votes_poll ON iot_votes(poll_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return stderrors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ==================== Fingerprint Methods ====================

// CreateFingerprint inserts a new device fingerprint
func (r *Repository) CreateFingerprint(ctx context.Context, fp *models.DeviceFingerprint) error {
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fingerprints (id, hash, ip, user_agent, first_seen, last_seen, blocked)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fp.ID, fp.Hash, fp.IP, fp.UserAgent, fp.FirstSeen, fp.LastSeen, fp.Blocked)
	return err
}

func (r *Repository) scanFingerprint(row *sql.Row) (*models.DeviceFingerprint, error) {
	var fp models.DeviceFingerprint
	var userAgent, blockReason, blockedBy sql.NullString
	var blockedAt sql.NullTime
	err := row.Scan(&fp.ID, &fp.Hash, &fp.IP, &userAgent, &fp.FirstSeen, &fp.LastSeen,
		&fp.Blocked, &blockReason, &blockedBy, &blockedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	fp.UserAgent = userAgent.String
	fp.BlockReason = blockReason.String
	fp.BlockedBy = blockedBy.String
	if blockedAt.Valid {
		t := blockedAt.Time
		fp.BlockedAt = &t
	}
	return &fp, nil
}

const fingerprintColumns = `id, hash, ip, user_agent, first_seen, last_seen, blocked, block_reason, blocked_by, blocked_at`

// GetFingerprint retrieves a fingerprint by ID
func (r *Repository) GetFingerprint(ctx context.Context, id string) (*models.DeviceFingerprint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints WHERE id = ?`, id)
	return r.scanFingerprint(row)
}

// GetFingerprintByHash retrieves a fingerprint by its derived hash
func (r *Repository) GetFingerprintByHash(ctx context.Context, hash string) (*models.DeviceFingerprint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints WHERE hash = ?`, hash)
	return r.scanFingerprint(row)
}

// TouchFingerprint updates a fingerprint's last_seen timestamp
func (r *Repository) TouchFingerprint(ctx context.Context, id string, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE fingerprints SET last_seen = ? WHERE id = ?`, seenAt, id)
	return err
}

func (r *Repository) listFingerprints(ctx context.Context, query string, args ...interface{}) ([]models.DeviceFingerprint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []models.DeviceFingerprint
	for rows.Next() {
		var fp models.DeviceFingerprint
		var userAgent, blockReason, blockedBy sql.NullString
		var blockedAt sql.NullTime
		if err := rows.Scan(&fp.ID, &fp.Hash, &fp.IP, &userAgent, &fp.FirstSeen, &fp.LastSeen,
			&fp.Blocked, &blockReason, &blockedBy, &blockedAt); err != nil {
			return nil, err
		}
		fp.UserAgent = userAgent.String
		fp.BlockReason = blockReason.String
		fp.BlockedBy = blockedBy.String
		if blockedAt.Valid {
			t := blockedAt.Time
			fp.BlockedAt = &t
		}
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// ListFingerprints returns all known fingerprints, most recently seen first
func (r *Repository) ListFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error) {
	return r.listFingerprints(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints ORDER BY last_seen DESC`)
}

// ListBlockedFingerprints returns all currently blocked fingerprints
func (r *Repository) ListBlockedFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error) {
	return r.listFingerprints(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints WHERE blocked = 1 ORDER BY blocked_at DESC`)
}

// SetFingerprintBlock updates a fingerprint's block state. Re-blocking simply
// overwrites the reason and timestamp; unblocking clears them.
func (r *Repository) SetFingerprintBlock(ctx context.Context, id string, blocked bool, reason, adminID string, blockedAt *time.Time) error {
	var reasonVal, adminVal interface{}
	if blocked {
		reasonVal = reason
		adminVal = adminID
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE fingerprints SET blocked = ?, block_reason = ?, blocked_by = ?, blocked_at = ?
		WHERE id = ?
	`, blocked, reasonVal, adminVal, blockedAt, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFingerprint deletes a fingerprint
func (r *Repository) DeleteFingerprint(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fingerprints WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Poll Methods ====================

// CreatePoll inserts a new poll
func (r *Repository) CreatePoll(ctx context.Context, p *models.Poll) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO polls (id, title, question, type, status, multiple_answers, show_results, organizer_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Question, string(p.Type), string(p.Status), p.MultipleAnswers, p.ShowResults, p.OrganizerID, p.CreatedAt)
	return err
}

// GetPoll retrieves a poll by ID with its options ordered by order_num
func (r *Repository) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var p models.Poll
	var organizerID sql.NullString
	var closedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, question, type, status, multiple_answers, show_results, organizer_id, created_at, closed_at
		FROM polls WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Question, &p.Type, &p.Status, &p.MultipleAnswers,
		&p.ShowResults, &organizerID, &p.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.OrganizerID = organizerID.String
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}

	options, err := r.ListOptions(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Options = options
	return &p, nil
}

func (r *Repository) listPolls(ctx context.Context, query string, args ...interface{}) ([]models.Poll, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []models.Poll
	for rows.Next() {
		var p models.Poll
		var organizerID sql.NullString
		var closedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Title, &p.Question, &p.Type, &p.Status,
			&p.MultipleAnswers, &p.ShowResults, &organizerID, &p.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		p.OrganizerID = organizerID.String
		if closedAt.Valid {
			t := closedAt.Time
			p.ClosedAt = &t
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

const pollColumns = `id, title, question, type, status, multiple_answers, show_results, organizer_id, created_at, closed_at`

// ListPolls returns all polls, newest first
func (r *Repository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	return r.listPolls(ctx, `SELECT `+pollColumns+` FROM polls ORDER BY created_at DESC`)
}

// ListPollsByStatus returns all polls in a given lifecycle state, newest first
func (r *Repository) ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error) {
	return r.listPolls(ctx, `SELECT `+pollColumns+` FROM polls WHERE status = ? ORDER BY created_at DESC`, string(status))
}

// UpdatePoll updates a poll's editable fields. Type and status are not
// touched here; status changes go through SetPollStatus.
func (r *Repository) UpdatePoll(ctx context.Context, p *models.Poll) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE polls SET title = ?, question = ?, show_results = ? WHERE id = ?
	`, p.Title, p.Question, p.ShowResults, p.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPollStatus updates a poll's lifecycle state
func (r *Repository) SetPollStatus(ctx context.Context, id string, status models.PollStatus, closedAt *time.Time, adminID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE polls SET status = ?, closed_at = COALESCE(?, closed_at), closed_by = COALESCE(?, closed_by)
		WHERE id = ?
	`, string(status), closedAt, nullableString(adminID), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePoll deletes a poll; options and votes cascade via foreign keys
func (r *Repository) DeletePoll(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ==================== Option Methods ====================

// CreateOption inserts a poll option. A duplicate (poll_id, order_num) pair
// yields ErrDuplicateOrder.
func (r *Repository) CreateOption(ctx context.Context, opt *models.PollOption) error {
	if opt.ID == "" {
		opt.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO poll_options (id, poll_id, text, order_num) VALUES (?, ?, ?, ?)
	`, opt.ID, opt.PollID, opt.Text, opt.OrderNum)
	if isUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	return err
}

// GetOption retrieves an option by ID
func (r *Repository) GetOption(ctx context.Context, id string) (*models.PollOption, error) {
	var opt models.PollOption
	err := r.db.QueryRowContext(ctx, `
		SELECT id, poll_id, text, order_num FROM poll_options WHERE id = ?
	`, id).Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.OrderNum)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

// ListOptions returns a poll's options ordered by order_num
func (r *Repository) ListOptions(ctx context.Context, pollID string) ([]models.PollOption, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, poll_id, text, order_num FROM poll_options WHERE poll_id = ? ORDER BY order_num
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []models.PollOption
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.OrderNum); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// MaxOptionOrder returns the highest order_num among a poll's options and
// whether the poll has any options at all.
func (r *Repository) MaxOptionOrder(ctx context.Context, pollID string) (int, bool, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(order_num) FROM poll_options WHERE poll_id = ?`, pollID).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	return int(max.Int64), max.Valid, nil
}

// OptionOrderExists checks whether an order_num is already taken within a poll
func (r *Repository) OptionOrderExists(ctx context.Context, pollID string, orderNum int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM poll_options WHERE poll_id = ? AND order_num = ?)`,
		pollID, orderNum).Scan(&exists)
	return exists, err
}

// UpdateOptionOrder changes an option's order_num
func (r *Repository) UpdateOptionOrder(ctx context.Context, id string, orderNum int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE poll_options SET order_num = ? WHERE id = ?`, orderNum, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOption deletes an option; its votes cascade
func (r *Repository) DeleteOption(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM poll_options WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Vote Methods ====================

// InsertVote persists a vote. The UNIQUE(poll_id, fingerprint_id) constraint
// is the authoritative duplicate guard: a second vote from the same device
// for the same poll yields ErrDuplicateVote even under concurrent inserts.
func (r *Repository) InsertVote(ctx context.Context, v *models.Vote) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	var optionID interface{}
	if v.OptionID != nil {
		optionID = *v.OptionID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (id, poll_id, option_id, fingerprint_id, text_answer, voted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.PollID, optionID, v.FingerprintID, v.TextAnswer, v.VotedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateVote
	}
	return err
}

// HasVoted checks whether a fingerprint has a vote recorded for a poll
func (r *Repository) HasVoted(ctx context.Context, pollID, fingerprintID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE poll_id = ? AND fingerprint_id = ?)`,
		pollID, fingerprintID).Scan(&exists)
	return exists, err
}

// GetVote retrieves a vote by ID
func (r *Repository) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	var v models.Vote
	var optionID, textAnswer sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, poll_id, option_id, fingerprint_id, text_answer, voted_at FROM votes WHERE id = ?
	`, id).Scan(&v.ID, &v.PollID, &optionID, &v.FingerprintID, &textAnswer, &v.VotedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if optionID.Valid {
		s := optionID.String
		v.OptionID = &s
	}
	v.TextAnswer = textAnswer.String
	return &v, nil
}

// DeleteVote deletes a vote
func (r *Repository) DeleteVote(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVotesForPoll returns all votes for a poll
func (r *Repository) ListVotesForPoll(ctx context.Context, pollID string) ([]models.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, poll_id, option_id, fingerprint_id, text_answer, voted_at
		FROM votes WHERE poll_id = ? ORDER BY voted_at
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var v models.Vote
		var optionID, textAnswer sql.NullString
		if err := rows.Scan(&v.ID, &v.PollID, &optionID, &v.FingerprintID, &textAnswer, &v.VotedAt); err != nil {
			return nil, err
		}
		if optionID.Valid {
			s := optionID.String
			v.OptionID = &s
		}
		v.TextAnswer = textAnswer.String
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// CountVotesForPoll returns the number of votes cast in a poll
func (r *Repository) CountVotesForPoll(ctx context.Context, pollID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE poll_id = ?`, pollID).Scan(&count)
	return count, err
}

// CountVotesByFingerprint returns the number of votes cast by a device
func (r *Repository) CountVotesByFingerprint(ctx context.Context, fingerprintID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE fingerprint_id = ?`, fingerprintID).Scan(&count)
	return count, err
}

// VoteCountsPerFingerprint returns the vote count for every known fingerprint,
// including devices that have never voted (count 0).
func (r *Repository) VoteCountsPerFingerprint(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, COUNT(v.id)
		FROM fingerprints f
		LEFT JOIN votes v ON v.fingerprint_id = f.id
		GROUP BY f.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// ==================== IoT Device Methods ====================

// CreateIotDevice inserts a new kiosk device
func (r *Repository) CreateIotDevice(ctx context.Context, d *models.IotDevice) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO iot_devices (id, kiosk_id, location, device_type, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.KioskID, d.Location, d.DeviceType, d.Active, d.CreatedAt)
	return err
}

func (r *Repository) scanIotDevice(row *sql.Row) (*models.IotDevice, error) {
	var d models.IotDevice
	var location sql.NullString
	var lastSync sql.NullTime
	err := row.Scan(&d.ID, &d.KioskID, &location, &d.DeviceType, &d.Active, &d.CreatedAt, &lastSync)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Location = location.String
	if lastSync.Valid {
		t := lastSync.Time
		d.LastSync = &t
	}
	return &d, nil
}

const iotDeviceColumns = `id, kiosk_id, location, device_type, active, created_at, last_sync`

// GetIotDevice retrieves a device by ID
func (r *Repository) GetIotDevice(ctx context.Context, id string) (*models.IotDevice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+iotDeviceColumns+` FROM iot_devices WHERE id = ?`, id)
	return r.scanIotDevice(row)
}

// GetIotDeviceByKioskID retrieves a device by its kiosk identifier
func (r *Repository) GetIotDeviceByKioskID(ctx context.Context, kioskID string) (*models.IotDevice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+iotDeviceColumns+` FROM iot_devices WHERE kiosk_id = ?`, kioskID)
	return r.scanIotDevice(row)
}

// ListIotDevices returns all kiosk devices
func (r *Repository) ListIotDevices(ctx context.Context) ([]models.IotDevice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+iotDeviceColumns+` FROM iot_devices ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.IotDevice
	for rows.Next() {
		var d models.IotDevice
		var location sql.NullString
		var lastSync sql.NullTime
		if err := rows.Scan(&d.ID, &d.KioskID, &location, &d.DeviceType, &d.Active, &d.CreatedAt, &lastSync); err != nil {
			return nil, err
		}
		d.Location = location.String
		if lastSync.Valid {
			t := lastSync.Time
			d.LastSync = &t
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// TouchIotDeviceSync updates a device's last_sync timestamp
func (r *Repository) TouchIotDeviceSync(ctx context.Context, id string, syncedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE iot_devices SET last_sync = ? WHERE id = ?`, syncedAt, id)
	return err
}

// GetDeviceConfig retrieves the config for a device
func (r *Repository) GetDeviceConfig(ctx context.Context, deviceID string) (*models.IotDeviceConfig, error) {
	var cfg models.IotDeviceConfig
	err := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, poll_interval_ms, display_timeout_ms, confidence_threshold,
		       anomaly_threshold, smoothing_alpha, enabled, config_version, created_at, updated_at
		FROM iot_device_configs WHERE device_id = ?
	`, deviceID).Scan(&cfg.ID, &cfg.DeviceID, &cfg.PollIntervalMs, &cfg.DisplayTimeoutMs,
		&cfg.ConfidenceThreshold, &cfg.AnomalyThreshold, &cfg.SmoothingAlpha,
		&cfg.Enabled, &cfg.ConfigVersion, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateDeviceConfig inserts a device config
func (r *Repository) CreateDeviceConfig(ctx context.Context, cfg *models.IotDeviceConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO iot_device_configs (id, device_id, poll_interval_ms, display_timeout_ms,
			confidence_threshold, anomaly_threshold, smoothing_alpha, enabled, config_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cfg.ID, cfg.DeviceID, cfg.PollIntervalMs, cfg.DisplayTimeoutMs, cfg.ConfidenceThreshold,
		cfg.AnomalyThreshold, cfg.SmoothingAlpha, cfg.Enabled, cfg.ConfigVersion, cfg.CreatedAt, cfg.UpdatedAt)
	return err
}

// UpdateDeviceConfig updates a device config and bumps its config_version.
// The incremented version is written back to cfg.
func (r *Repository) UpdateDeviceConfig(ctx context.Context, cfg *models.IotDeviceConfig) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE iot_device_configs
		SET poll_interval_ms = ?, display_timeout_ms = ?, confidence_threshold = ?,
		    anomaly_threshold = ?, smoothing_alpha = ?, enabled = ?,
		    config_version = config_version + 1, updated_at = ?
		WHERE device_id = ?
	`, cfg.PollIntervalMs, cfg.DisplayTimeoutMs, cfg.ConfidenceThreshold,
		cfg.AnomalyThreshold, cfg.SmoothingAlpha, cfg.Enabled, cfg.UpdatedAt, cfg.DeviceID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return r.db.QueryRowContext(ctx,
		`SELECT config_version FROM iot_device_configs WHERE device_id = ?`,
		cfg.DeviceID).Scan(&cfg.ConfigVersion)
}

// ==================== IoT Vote Methods ====================

// InsertIotVote persists a kiosk vote with its scores. IoT votes are
// append-only; there is no update path.
func (r *Repository) InsertIotVote(ctx context.Context, v *models.IotVote) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	var optionID interface{}
	if v.OptionID != nil {
		optionID = *v.OptionID
	}
	var rating interface{}
	if v.Rating != nil {
		rating = *v.Rating
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO iot_votes (id, device_id, poll_id, option_id, option_ids, rating, text_answer,
			voting_time_ms, confidence, anomaly_score, entropy, suspicious, validation_status,
			analysis, device_metadata, voted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.DeviceID, v.PollID, optionID, v.OptionIDs, rating, v.TextAnswer,
		v.VotingTimeMs, v.Confidence, v.AnomalyScore, v.Entropy, v.Suspicious,
		string(v.ValidationStatus), v.Analysis, v.DeviceMetadata, v.VotedAt)
	return err
}

// ListIotVotesForDevice returns all votes submitted by a kiosk
func (r *Repository) ListIotVotesForDevice(ctx context.Context, deviceID string) ([]models.IotVote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, poll_id, option_id, option_ids, rating, text_answer,
		       voting_time_ms, confidence, anomaly_score, entropy, suspicious, validation_status,
		       analysis, device_metadata, voted_at
		FROM iot_votes WHERE device_id = ? ORDER BY voted_at
	`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.IotVote
	for rows.Next() {
		var v models.IotVote
		var optionID, optionIDs, textAnswer, analysis, metadata sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&v.ID, &v.DeviceID, &v.PollID, &optionID, &optionIDs, &rating, &textAnswer,
			&v.VotingTimeMs, &v.Confidence, &v.AnomalyScore, &v.Entropy, &v.Suspicious, &v.ValidationStatus,
			&analysis, &metadata, &v.VotedAt); err != nil {
			return nil, err
		}
		if optionID.Valid {
			s := optionID.String
			v.OptionID = &s
		}
		if rating.Valid {
			n := int(rating.Int64)
			v.Rating = &n
		}
		v.OptionIDs = optionIDs.String
		v.TextAnswer = textAnswer.String
		v.Analysis = analysis.String
		v.DeviceMetadata = metadata.String
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// CountIotVotesForDevice returns the number of votes submitted by a kiosk
func (r *Repository) CountIotVotesForDevice(ctx context.Context, deviceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM iot_votes WHERE device_id = ?`, deviceID).Scan(&count)
	return count, err
}

// ==================== Admin Methods ====================

// CreateAdmin inserts an admin account. A taken email yields ErrDuplicateEmail.
func (r *Repository) CreateAdmin(ctx context.Context, a *models.Admin, passwordHash string) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, name, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Email, a.Name, passwordHash, a.Active, a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetAdmin retrieves an admin account by ID
func (r *Repository) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	var name sql.NullString
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, active, created_at, last_login_at FROM admins WHERE id = ?
	`, id).Scan(&a.ID, &a.Email, &name, &a.Active, &a.CreatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Name = name.String
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

// GetAdminCredentials retrieves an admin account and its password hash by email
func (r *Repository) GetAdminCredentials(ctx context.Context, email string) (*models.Admin, string, error) {
	var a models.Admin
	var name sql.NullString
	var lastLogin sql.NullTime
	var passwordHash string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, active, created_at, last_login_at FROM admins WHERE email = ?
	`, email).Scan(&a.ID, &a.Email, &name, &passwordHash, &a.Active, &a.CreatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	a.Name = name.String
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, passwordHash, nil
}

// SetAdminActive updates an admin's active flag
func (r *Repository) SetAdminActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE admins SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAdminLogin updates an admin's last_login_at timestamp
func (r *Repository) TouchAdminLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, at, id)
	return err
}

// InsertAdminLog appends an audit record of an admin action
func (r *Repository) InsertAdminLog(ctx context.Context, entry *models.AdminLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_logs (id, admin_id, action, target_type, target_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.AdminID, entry.Action, entry.TargetType, entry.TargetID, entry.Description, entry.CreatedAt)
	return err
}

// ListAdminLogs returns the most recent audit records, newest first
func (r *Repository) ListAdminLogs(ctx context.Context, limit int) ([]models.AdminLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, admin_id, action, target_type, target_id, description, created_at
		FROM admin_logs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AdminLog
	for rows.Next() {
		var entry models.AdminLog
		var targetID, description sql.NullString
		if err := rows.Scan(&entry.ID, &entry.AdminID, &entry.Action, &entry.TargetType,
			&targetID, &description, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.TargetID = targetID.String
		entry.Description = description.String
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
