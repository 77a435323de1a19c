package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var specialties = []string{
	"Clínica Médica",
	"Cardiología",
	"Dermatología",
	"Pediatría",
	"Psiquiatría",
	"Psicología",
	"Traumatología",
	"Ginecología",
	"Oftalmología",
	"Otorrinolaringología",
}

var insurers = []string{"OSDE", "Swiss Medical", "Galeno", "IOMA", "PAMI", "Medifé"}

func main() {
	_ = godotenv.Load()
	logger := logging.New(getEnv("APP_ENV", "dev"), "info").With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	s := &seeder{
		pool:   pool,
		faker:  gofakeit.New(0),
		log:    logger,
		sched:  schedule.NewPgRepository(pool),
		notify: notification.NewPgRepository(pool),
	}

	run := context.Background()
	insurerIDs, err := s.seedInsurers(run)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed insurers")
	}
	if err := s.seedProfessionals(run, getInt("SEED_PROFESSIONALS", 20)); err != nil {
		logger.Fatal().Err(err).Msg("seed professionals")
	}
	if err := s.seedPatients(run, getInt("SEED_PATIENTS", 2000), insurerIDs); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := s.seedNotificationSettings(run); err != nil {
		logger.Fatal().Err(err).Msg("seed notification settings")
	}

	logger.Info().Msg("seed complete")
}

type seeder struct {
	pool   *pgxpool.Pool
	faker  *gofakeit.Faker
	log    zerolog.Logger
	sched  *schedule.PgRepository
	notify *notification.PgRepository
}

func (s *seeder) seedInsurers(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(insurers))
	for _, name := range insurers {
		var id uuid.UUID
		err := s.pool.QueryRow(ctx, `
			INSERT INTO insurers (id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), name).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	s.log.Info().Int("count", len(ids)).Msg("insurers seeded")
	return ids, nil
}

// seedProfessionals gives every professional a morning window Monday to
// Friday and an afternoon window on some of those days.
func (s *seeder) seedProfessionals(ctx context.Context, count int) error {
	s.log.Info().Int("count", count).Msg("seeding professionals")

	slotDurations := []int{15, 20, 30, 30, 30, 45, 60}
	morningStart := mustTime("08:00")
	morningEnd := mustTime("12:00")
	afternoonStart := mustTime("14:00")
	afternoonEnd := mustTime("18:00")

	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := s.pool.Exec(ctx, `
			INSERT INTO professionals (id, first_name, last_name, specialty, slot_duration_minutes, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		`, id, s.faker.FirstName(), s.faker.LastName(),
			specialties[s.faker.Number(0, len(specialties)-1)],
			slotDurations[s.faker.Number(0, len(slotDurations)-1)])
		if err != nil {
			return err
		}

		for day := time.Monday; day <= time.Friday; day++ {
			windows := [][2]schedule.TimeOfDay{{morningStart, morningEnd}}
			if s.faker.Bool() {
				windows = append(windows, [2]schedule.TimeOfDay{afternoonStart, afternoonEnd})
			}
			for _, w := range windows {
				_, err := s.sched.CreateSchedule(ctx, schedule.WeeklySchedule{
					ID:             uuid.New(),
					ProfessionalID: id,
					DayOfWeek:      day,
					Start:          w[0],
					End:            w[1],
					Active:         true,
				})
				if err != nil {
					return err
				}
			}
		}
	}

	s.log.Info().Msg("professionals seeded")
	return nil
}

func (s *seeder) seedPatients(ctx context.Context, count int, insurerIDs []uuid.UUID) error {
	s.log.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			var insurerID *uuid.UUID
			if len(insurerIDs) > 0 && s.faker.Number(0, 3) > 0 {
				insurerID = &insurerIDs[s.faker.Number(0, len(insurerIDs)-1)]
			}
			var phone *string
			if s.faker.Number(0, 4) > 0 {
				p := "11" + s.faker.Numerify("########")
				phone = &p
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, email, phone, insurer_id, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
			`, uuid.New(), s.faker.FirstName(), s.faker.LastName(), s.faker.Email(), phone, insurerID)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		s.log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// seedNotificationSettings enables email for every type inside 08:00-20:00
// and adds default templates once.
func (s *seeder) seedNotificationSettings(ctx context.Context) error {
	for _, t := range notification.Types {
		_, err := s.notify.UpsertConfig(ctx, notification.Config{
			Type:         t,
			EmailEnabled: true,
			WindowStart:  "08:00",
			WindowEnd:    "20:00",
		})
		if err != nil {
			return err
		}
	}

	existing, err := s.notify.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Info().Int("count", len(existing)).Msg("templates already present, skipping")
		return nil
	}

	for _, tpl := range defaultTemplates() {
		tpl.Active = true
		tpl.Variables = notification.KnownTokens()
		if _, err := s.notify.CreateTemplate(ctx, tpl); err != nil {
			return err
		}
	}
	s.log.Info().Msg("notification settings seeded")
	return nil
}

func defaultTemplates() []notification.Template {
	subject := func(s string) *string { return &s }
	return []notification.Template{
		{
			Type: notification.TypeConfirmation, Channel: notification.ChannelEmail,
			Subject: subject("Turno confirmado - {fecha}"),
			Body: `<p>Hola <strong>{paciente}</strong>,</p>
<p>Tu turno con {profesional} ({especialidad}) quedó confirmado para el {fechaHora}.</p>
<p>Duración: {duracion}. Cobertura: {obraSocial}.</p>`,
		},
		{
			Type: notification.TypeReminder24h, Channel: notification.ChannelEmail,
			Subject: subject("Recordatorio: tu turno es mañana"),
			Body: `<p>Hola <strong>{paciente}</strong>,</p>
<p>Te recordamos tu turno de mañana {fecha} a las {hora} con {profesional}.</p>
<p>Por favor llegá 10 minutos antes.</p>`,
		},
		{
			Type: notification.TypeReminder2h, Channel: notification.ChannelEmail,
			Subject: subject("Tu turno es en 2 horas"),
			Body: `<p>Hola <strong>{paciente}</strong>, tu turno con {profesional} es hoy a las {hora}.</p>`,
		},
		{
			Type: notification.TypeCancellation, Channel: notification.ChannelEmail,
			Subject: subject("Turno cancelado"),
			Body: `<p>Hola <strong>{paciente}</strong>,</p>
<p>Tu turno del {fechaHora} con {profesional} fue cancelado.</p>`,
		},
		{
			Type: notification.TypeConfirmation, Channel: notification.ChannelWhatsApp,
			Body: "Hola {paciente}, tu turno con {profesional} quedó confirmado para el {fechaHora}.",
		},
		{
			Type: notification.TypeReminder24h, Channel: notification.ChannelWhatsApp,
			Body: "Hola {paciente}, te recordamos tu turno de mañana a las {hora} con {profesional}.",
		},
		{
			Type: notification.TypeReminder2h, Channel: notification.ChannelWhatsApp,
			Body: "Hola {paciente}, tu turno es hoy a las {hora}. ¡Te esperamos!",
		},
		{
			Type: notification.TypeCancellation, Channel: notification.ChannelWhatsApp,
			Body: "Hola {paciente}, tu turno del {fechaHora} fue cancelado.",
		},
	}
}

func mustTime(s string) schedule.TimeOfDay {
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
