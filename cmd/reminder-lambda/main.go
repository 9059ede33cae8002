// Scheduled Lambda that sends day-before appointment reminders. EventBridge
// triggers it once per evening; it scans tomorrow's confirmed appointments
// and delivers a reminder over the channels each patient has a contact for.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinigo/platform/cmd/mainconfig"
	appconfig "github.com/clinigo/platform/internal/config"
	"github.com/clinigo/platform/internal/notify"
	"github.com/clinigo/platform/pkg/logging"
)

type reminderRow struct {
	patientName  string
	patientEmail string
	patientPhone string
	doctorName   string
	clinicName   string
	date         string
	timeOfDay    string
}

type reminderSender struct {
	pool     *pgxpool.Pool
	email    notify.EmailSender
	whatsapp notify.WhatsAppSender
	logger   *logging.Logger
}

func (s *reminderSender) run(ctx context.Context) (int, error) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	rows, err := s.pool.Query(ctx, `
		SELECT p.name, p.email, p.phone, d.name, c.name, a.appointment_date, a.appointment_time
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN clinics c ON c.id = a.clinic_id
		WHERE a.appointment_date = $1 AND a.status = 'confirmed'
		ORDER BY a.appointment_time
	`, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("reminder: query appointments: %w", err)
	}
	defer rows.Close()

	var reminders []reminderRow
	for rows.Next() {
		var r reminderRow
		if err := rows.Scan(&r.patientName, &r.patientEmail, &r.patientPhone,
			&r.doctorName, &r.clinicName, &r.date, &r.timeOfDay); err != nil {
			return 0, fmt.Errorf("reminder: scan row: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reminder: iterate rows: %w", err)
	}

	sent := 0
	for _, r := range reminders {
		content := notify.RenderReminder(r.patientName, r.clinicName, r.doctorName, r.date, r.timeOfDay)
		delivered := false
		if s.email != nil && r.patientEmail != "" {
			err := s.email.Send(ctx, notify.EmailMessage{
				To:      r.patientEmail,
				ToName:  r.patientName,
				Subject: content.Subject,
				Body:    content.Body,
			})
			if err != nil {
				s.logger.Error("reminder email failed", "error", err, "to", r.patientEmail)
			} else {
				delivered = true
			}
		}
		if s.whatsapp != nil && r.patientPhone != "" {
			if err := s.whatsapp.SendWhatsApp(ctx, r.patientPhone, content.Body); err != nil {
				s.logger.Error("reminder whatsapp failed", "error", err, "to", r.patientPhone)
			} else {
				delivered = true
			}
		}
		if delivered {
			sent++
		}
	}
	return sent, nil
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("reminder-lambda")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var email notify.EmailSender
	switch cfg.EmailProvider {
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			email = sender
		}
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			email = sender
		}
	}

	var whatsapp notify.WhatsAppSender
	if client := notify.NewMessagingClient(notify.MessagingConfig{
		BaseURL: cfg.MessagingAPIBaseURL,
		APIKey:  cfg.MessagingAPIKey,
	}, logger); client != nil {
		whatsapp = client
	}

	sender := &reminderSender{pool: pool, email: email, whatsapp: whatsapp, logger: logger}

	lambda.Start(func(ctx context.Context, _ events.CloudWatchEvent) error {
		sent, err := sender.run(ctx)
		if err != nil {
			logger.Error("reminder run failed", "error", err)
			return err
		}
		logger.Info("reminders sent", "count", sent)
		return nil
	})
}
