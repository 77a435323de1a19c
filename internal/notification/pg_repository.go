package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const notificationColumns = `id, appointment_id, patient_id, type, channel, recipient, subject, body,
	scheduled_for, status, attempts, last_error, sent_at, metadata, created_at, updated_at`

const templateColumns = `id, type, channel, subject, body, active, variables, created_at, updated_at`

const configColumns = `type, email_enabled, whatsapp_enabled, sms_enabled, send_window_start, send_window_end, updated_at`

// Appointment statuses whose pending reminders are not sent.
var cancelledAppointmentStatuses = []string{"CANCELLED_BY_PATIENT", "CANCELLED_BY_PROFESSIONAL"}

type PgRepository struct {
	db db.DB
}

func NewPgRepository(conn db.DB) *PgRepository {
	return &PgRepository{db: conn}
}

var _ Repository = (*PgRepository)(nil)

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification

	err := row.Scan(
		&n.ID,
		&n.AppointmentID,
		&n.PatientID,
		&n.Type,
		&n.Channel,
		&n.Recipient,
		&n.Subject,
		&n.Body,
		&n.ScheduledFor,
		&n.Status,
		&n.Attempts,
		&n.LastError,
		&n.SentAt,
		&n.Metadata,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template

	err := row.Scan(
		&t.ID,
		&t.Type,
		&t.Channel,
		&t.Subject,
		&t.Body,
		&t.Active,
		&t.Variables,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanConfig(row pgx.Row) (*Config, error) {
	var c Config

	err := row.Scan(
		&c.Type,
		&c.EmailEnabled,
		&c.WhatsAppEnabled,
		&c.SMSEnabled,
		&c.WindowStart,
		&c.WindowEnd,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *PgRepository) FindConfig(ctx context.Context, t Type) (*Config, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+configColumns+`
		FROM notification_configs
		WHERE type = $1
	`, t)
	return scanConfig(row)
}

func (r *PgRepository) FindActiveTemplate(ctx context.Context, t Type, c Channel) (*Template, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM notification_templates
		WHERE type = $1
		  AND channel = $2
		  AND active
		ORDER BY updated_at DESC, id
		LIMIT 1
	`, t, c)
	return scanTemplate(row)
}

func (r *PgRepository) LoadAppointmentData(ctx context.Context, appointmentID uuid.UUID) (*AppointmentData, error) {
	var d AppointmentData

	err := r.db.QueryRow(ctx, `
		SELECT a.id, a.patient_id, p.email, p.phone,
		       p.first_name, p.last_name,
		       pr.first_name, pr.last_name, pr.specialty,
		       a.start_at, a.duration_minutes, COALESCE(i.name, '')
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN professionals pr ON pr.id = a.professional_id
		LEFT JOIN insurers i ON i.id = a.insurer_id
		WHERE a.id = $1
	`, appointmentID).Scan(
		&d.AppointmentID,
		&d.PatientID,
		&d.PatientEmail,
		&d.PatientPhone,
		&d.Render.PatientFirstName,
		&d.Render.PatientLastName,
		&d.Render.ProfessionalFirstName,
		&d.Render.ProfessionalLastName,
		&d.Render.Specialty,
		&d.Render.StartAt,
		&d.Render.DurationMinutes,
		&d.Render.InsurerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment data: %w", err)
	}

	return &d, nil
}

func (r *PgRepository) Create(ctx context.Context, n Notification) (*Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (id, appointment_id, patient_id, type, channel, recipient, subject, body,
		                           scheduled_for, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, now(), now())
		RETURNING `+notificationColumns,
		n.ID, n.AppointmentID, n.PatientID, n.Type, n.Channel, n.Recipient, n.Subject, n.Body,
		n.ScheduledFor, n.Status)

	return scanNotification(row)
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, metadata map[string]string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET status = 'SENT',
		    attempts = attempts + 1,
		    sent_at = $2,
		    metadata = $3,
		    last_error = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id, sentAt, metadata)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET status = 'FAILED',
		    attempts = attempts + 1,
		    last_error = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) SupersedeProgrammed(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET status = 'SUPERSEDED',
		    updated_at = now()
		WHERE appointment_id = $1
		  AND status = 'PROGRAMMED'
		  AND type <> 'CANCELLATION'
	`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("supersede programmed notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) ClaimDueProgrammed(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE notifications
		SET status = 'PENDING',
		    updated_at = now()
		WHERE id IN (
			SELECT n.id
			FROM notifications n
			JOIN appointments a ON a.id = n.appointment_id
			WHERE n.status = 'PROGRAMMED'
			  AND n.scheduled_for <= $1
			  AND (n.type = 'CANCELLATION' OR a.status <> ALL($3))
			ORDER BY n.scheduled_for
			LIMIT $2
			FOR UPDATE OF n SKIP LOCKED
		)
		RETURNING `+notificationColumns, now, limit, cancelledAppointmentStatuses)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	return collectNotifications(rows)
}

func (r *PgRepository) ClaimRetryableFailed(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE notifications
		SET status = 'PENDING',
		    updated_at = now()
		WHERE id IN (
			SELECT n.id
			FROM notifications n
			JOIN appointments a ON a.id = n.appointment_id
			WHERE (n.status = 'FAILED' OR (n.status = 'PENDING' AND n.updated_at < $2))
			  AND n.attempts < $1
			  AND (n.type = 'CANCELLATION' OR a.status <> ALL($4))
			ORDER BY n.updated_at
			LIMIT $3
			FOR UPDATE OF n SKIP LOCKED
		)
		RETURNING `+notificationColumns, maxAttempts, staleBefore, limit, cancelledAppointmentStatuses)
	if err != nil {
		return nil, fmt.Errorf("claim retryable notifications: %w", err)
	}
	return collectNotifications(rows)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Notification, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AppointmentID != nil {
		add("appointment_id = $%d", *f.AppointmentID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	pageArgs := append(append([]any{}, args...), f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT `+notificationColumns+`
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	items, err := collectNotifications(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PgRepository) Stats(ctx context.Context, from, to *time.Time) (*Stats, error) {
	const rangeFilter = `($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at <= $2)`

	s := Stats{ByType: map[Type]int{}, ByChannel: map[Channel]int{}}

	err := r.db.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE status = 'SENT'),
		       count(*) FILTER (WHERE status = 'FAILED'),
		       count(*) FILTER (WHERE status = 'PROGRAMMED')
		FROM notifications
		WHERE `+rangeFilter, from, to).Scan(&s.Sent, &s.Failed, &s.Programmed)
	if err != nil {
		return nil, fmt.Errorf("count notifications by status: %w", err)
	}

	if err := r.groupCount(ctx, "type", rangeFilter, from, to, func(k string, n int) { s.ByType[Type(k)] = n }); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "channel", rangeFilter, from, to, func(k string, n int) { s.ByChannel[Channel(k)] = n }); err != nil {
		return nil, err
	}

	if attempted := s.Sent + s.Failed; attempted > 0 {
		s.SuccessRate = float64(s.Sent) / float64(attempted) * 100
	}

	return &s, nil
}

func (r *PgRepository) groupCount(ctx context.Context, column, filter string, from, to *time.Time, set func(string, int)) error {
	rows, err := r.db.Query(ctx, `
		SELECT `+column+`, count(*)
		FROM notifications
		WHERE `+filter+`
		GROUP BY `+column, from, to)
	if err != nil {
		return fmt.Errorf("count notifications by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		set(key, n)
	}
	return rows.Err()
}

func (r *PgRepository) ListConfigs(ctx context.Context) ([]Config, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+configColumns+`
		FROM notification_configs
		ORDER BY type
	`)
	if err != nil {
		return nil, fmt.Errorf("list notification configs: %w", err)
	}
	defer rows.Close()

	var result []Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpsertConfig(ctx context.Context, c Config) (*Config, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO notification_configs (type, email_enabled, whatsapp_enabled, sms_enabled,
		                                  send_window_start, send_window_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (type) DO UPDATE
		SET email_enabled = EXCLUDED.email_enabled,
		    whatsapp_enabled = EXCLUDED.whatsapp_enabled,
		    sms_enabled = EXCLUDED.sms_enabled,
		    send_window_start = EXCLUDED.send_window_start,
		    send_window_end = EXCLUDED.send_window_end,
		    updated_at = now()
		RETURNING `+configColumns,
		c.Type, c.EmailEnabled, c.WhatsAppEnabled, c.SMSEnabled, c.WindowStart, c.WindowEnd)

	return scanConfig(row)
}

func (r *PgRepository) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+templateColumns+`
		FROM notification_templates
		ORDER BY type, channel, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notification templates: %w", err)
	}
	defer rows.Close()

	var result []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateTemplate(ctx context.Context, t Template) (*Template, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO notification_templates (id, type, channel, subject, body, active, variables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+templateColumns,
		t.ID, t.Type, t.Channel, t.Subject, t.Body, t.Active, t.Variables)

	return scanTemplate(row)
}
