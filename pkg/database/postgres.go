package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hivemind-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresStore PostgreSQL 实现。结构化字段落列，嵌套结构
// （policy/members/settings/consent）以 JSONB 存储。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 建立连接并配置连接池
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	// 清理 env 来源里可能的换行/空格
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	// 连接池参数（服务进程常驻，给出适度的上限）
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// ==== users ====

func (s *PostgresStore) SaveUser(user *models.User) error {
	consent, err := json.Marshal(user.Consent)
	if err != nil {
		return fmt.Errorf("failed to marshal consent config: %w", err)
	}
	spaceIDs, err := json.Marshal(user.Spaces)
	if err != nil {
		return fmt.Errorf("failed to marshal space list: %w", err)
	}
	query := `
        INSERT INTO users (id, display_name, contact_method, consent_config, spaces, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            contact_method = EXCLUDED.contact_method,
            consent_config = EXCLUDED.consent_config,
            spaces = EXCLUDED.spaces,
            updated_at = EXCLUDED.updated_at
    `
	_, err = s.db.Exec(query, user.ID, user.DisplayName, user.ContactMethod,
		consent, spaceIDs, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	query := `
        SELECT id, display_name, COALESCE(contact_method,''), consent_config, spaces, created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	var consent, spaceIDs []byte
	err := s.db.QueryRow(query, id).Scan(
		&u.ID, &u.DisplayName, &u.ContactMethod, &consent, &spaceIDs, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := json.Unmarshal(consent, &u.Consent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consent config: %w", err)
	}
	if err := json.Unmarshal(spaceIDs, &u.Spaces); err != nil {
		return nil, fmt.Errorf("failed to unmarshal space list: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetAllUsers() ([]models.User, error) {
	rows, err := s.db.Query(`
        SELECT id, display_name, COALESCE(contact_method,''), consent_config, spaces, created_at, updated_at
        FROM users ORDER BY created_at
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var consent, spaceIDs []byte
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.ContactMethod, &consent, &spaceIDs, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		if err := json.Unmarshal(consent, &u.Consent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal consent config: %w", err)
		}
		if err := json.Unmarshal(spaceIDs, &u.Spaces); err != nil {
			return nil, fmt.Errorf("failed to unmarshal space list: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ==== spaces ====

func (s *PostgresStore) SaveSpace(space *models.Space) error {
	members, err := json.Marshal(space.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal members: %w", err)
	}
	pol, err := json.Marshal(space.Policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	settings, err := json.Marshal(space.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	query := `
        INSERT INTO spaces (id, space_type, name, description, members, policy, created_by, invite_code, settings, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            members = EXCLUDED.members,
            policy = EXCLUDED.policy,
            settings = EXCLUDED.settings
    `
	_, err = s.db.Exec(query, space.ID, string(space.Type), space.Name, space.Description,
		members, pol, space.CreatedBy, space.InviteCode, settings, space.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save space: %w", err)
	}
	return nil
}

const spaceColumns = `id, space_type, name, COALESCE(description,''), members, policy, created_by, invite_code, settings, created_at`

func (s *PostgresStore) scanSpace(row *sql.Row) (*models.Space, error) {
	var sp models.Space
	var spaceType string
	var members, pol, settings []byte
	err := row.Scan(&sp.ID, &spaceType, &sp.Name, &sp.Description, &members, &pol,
		&sp.CreatedBy, &sp.InviteCode, &settings, &sp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	sp.Type = models.SpaceType(spaceType)
	if err := json.Unmarshal(members, &sp.Members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal members: %w", err)
	}
	if err := json.Unmarshal(pol, &sp.Policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	if err := json.Unmarshal(settings, &sp.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &sp, nil
}

func (s *PostgresStore) GetSpace(id string) (*models.Space, error) {
	return s.scanSpace(s.db.QueryRow(`SELECT `+spaceColumns+` FROM spaces WHERE id = $1`, id))
}

func (s *PostgresStore) GetSpaceByInviteCode(code string) (*models.Space, error) {
	return s.scanSpace(s.db.QueryRow(
		`SELECT `+spaceColumns+` FROM spaces WHERE invite_code = $1`,
		strings.ToUpper(strings.TrimSpace(code)),
	))
}

func (s *PostgresStore) DeleteSpace(id string) error {
	res, err := s.db.Exec(`DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== filtered documents ====

func (s *PostgresStore) SaveFilteredDocument(doc *models.FilteredDocument) error {
	origTopics, err := json.Marshal(doc.OriginalTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal original topics: %w", err)
	}
	filtTopics, err := json.Marshal(doc.FilteredTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal filtered topics: %w", err)
	}
	query := `
        INSERT INTO filtered_documents
            (id, space_id, source_turn_id, author_user_id, content, original_topics, filtered_topics,
             attribution_level, display_name, contact_method, contact_preference,
             confidence_score, sensitivity_score, approved, approved_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `
	var contactPref *string
	if doc.ContactPreference != nil {
		v := string(*doc.ContactPreference)
		contactPref = &v
	}
	_, err = s.db.Exec(query, doc.ID, doc.SpaceID, doc.SourceTurnID, doc.AuthorUserID, doc.Content,
		origTopics, filtTopics, string(doc.AttributionLevel), doc.DisplayName, doc.ContactMethod,
		contactPref, doc.ConfidenceScore, doc.SensitivityScore, doc.Approved, doc.ApprovedBy, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save filtered document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSpaceDocuments(spaceID string, limit int) ([]models.FilteredDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
        SELECT id, space_id, source_turn_id, author_user_id, content, original_topics, filtered_topics,
               attribution_level, display_name, contact_method, contact_preference,
               confidence_score, sensitivity_score, approved, approved_by, created_at
        FROM filtered_documents
        WHERE space_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, spaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.FilteredDocument
	for rows.Next() {
		var d models.FilteredDocument
		var attribution string
		var contactPref *string
		var origTopics, filtTopics []byte
		if err := rows.Scan(&d.ID, &d.SpaceID, &d.SourceTurnID, &d.AuthorUserID, &d.Content,
			&origTopics, &filtTopics, &attribution, &d.DisplayName, &d.ContactMethod,
			&contactPref, &d.ConfidenceScore, &d.SensitivityScore, &d.Approved, &d.ApprovedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		d.AttributionLevel = models.AttributionLevel(attribution)
		if contactPref != nil {
			v := models.ContactPreference(*contactPref)
			d.ContactPreference = &v
		}
		if err := json.Unmarshal(origTopics, &d.OriginalTopics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal original topics: %w", err)
		}
		if err := json.Unmarshal(filtTopics, &d.FilteredTopics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filtered topics: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ==== pending approvals ====

func (s *PostgresStore) SavePendingApproval(approval *models.PendingApproval) error {
	query := `
        INSERT INTO pending_approvals
            (id, user_id, space_id, source_turn_id, proposed_content, reason_for_approval,
             confidence_score, sensitivity_score, status, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
    `
	_, err := s.db.Exec(query, approval.ID, approval.UserID, approval.SpaceID, approval.SourceTurnID,
		approval.ProposedContent, approval.ReasonForApproval, approval.ConfidenceScore,
		approval.SensitivityScore, string(approval.Status), approval.CreatedAt, approval.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save pending approval: %w", err)
	}
	return nil
}

const approvalColumns = `id, user_id, space_id, source_turn_id, proposed_content, reason_for_approval,
        confidence_score, sensitivity_score, status, created_at, expires_at`

func scanApproval(scan func(dest ...interface{}) error) (*models.PendingApproval, error) {
	var a models.PendingApproval
	var status string
	err := scan(&a.ID, &a.UserID, &a.SpaceID, &a.SourceTurnID, &a.ProposedContent,
		&a.ReasonForApproval, &a.ConfidenceScore, &a.SensitivityScore, &status, &a.CreatedAt, &a.ExpiresAt)
	if err != nil {
		return nil, err
	}
	a.Status = models.ApprovalStatus(status)
	return &a, nil
}

func (s *PostgresStore) GetPendingApproval(id string) (*models.PendingApproval, error) {
	row := s.db.QueryRow(`SELECT `+approvalColumns+` FROM pending_approvals WHERE id = $1`, id)
	a, err := scanApproval(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetPendingApprovals(userID string) ([]models.PendingApproval, error) {
	rows, err := s.db.Query(`
        SELECT `+approvalColumns+` FROM pending_approvals
        WHERE user_id = $1 ORDER BY created_at
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var out []models.PendingApproval
	for rows.Next() {
		a, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval row: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateApprovalStatus(id string, status models.ApprovalStatus) error {
	res, err := s.db.Exec(`UPDATE pending_approvals SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==== raw conversations ====

func (s *PostgresStore) SaveRawConversation(turn *models.RawConversationTurn) error {
	topics, err := json.Marshal(turn.Topics)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}
	entities, err := json.Marshal(turn.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}
	query := `
        INSERT INTO raw_conversations
            (id, user_id, ts, user_message, assistant_message, conversation_id, topics, entities)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING
    `
	_, err = s.db.Exec(query, turn.ID, turn.UserID, turn.Timestamp, turn.UserMessage,
		turn.AssistantMessage, turn.ConversationID, topics, entities)
	if err != nil {
		return fmt.Errorf("failed to save raw conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
