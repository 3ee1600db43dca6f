package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/gomail.v2"

	"github.com/memberwell/memberwell-backend/internal/config"
)

// SMTPMailer sends transactional email and appends every attempt to the
// Mongo mail_log collection. The log is append-only: delivery questions from
// members get answered from it.
type SMTPMailer struct {
	cfg     *config.Config
	mailLog *mongo.Collection
}

// NewSMTPMailer creates the mailer. mailLog may be nil (Mongo down at boot);
// sends still work, only the dispatch log is skipped.
func NewSMTPMailer(cfg *config.Config, db *mongo.Database) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	if db != nil {
		m.mailLog = db.Collection("mail_log")
	}
	return m
}

type mailLogEntry struct {
	MessageID string    `bson:"message_id"`
	To        string    `bson:"to"`
	Subject   string    `bson:"subject"`
	SentAt    time.Time `bson:"sent_at"`
	Error     string    `bson:"error,omitempty"`
}

// Send dispatches one HTML email and returns the message id. Failures are
// returned to the caller AND logged to the dispatch log; they must never be
// silently swallowed.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) (string, error) {
	if m.cfg.SMTPHost == "" || m.cfg.FromEmail == "" {
		return "", fmt.Errorf("email config missing")
	}

	messageID := uuid.New().String()

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@memberwell>", messageID))
	msg.SetBody("text/html", html)

	d := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPass)

	sendErr := d.DialAndSend(msg)
	m.logDispatch(ctx, messageID, to, subject, sendErr)

	if sendErr != nil {
		return "", fmt.Errorf("send email: %w", sendErr)
	}
	return messageID, nil
}

func (m *SMTPMailer) logDispatch(ctx context.Context, messageID, to, subject string, sendErr error) {
	if m.mailLog == nil {
		return
	}

	entry := mailLogEntry{MessageID: messageID, To: to, Subject: subject, SentAt: time.Now()}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if _, err := m.mailLog.InsertOne(ctx, entry); err != nil {
		log.Printf("mailer: recording dispatch %s: %v", messageID, err)
	}
}
