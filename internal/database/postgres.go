package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Auth accounts (the local auth provider's credential store)
		`CREATE TABLE IF NOT EXISTS auth_accounts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			member_number VARCHAR(10)
		)`,

		// Members table (the association's business entity)
		`CREATE TABLE IF NOT EXISTS members (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			member_number VARCHAR(10) NOT NULL UNIQUE,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			auth_user_id UUID REFERENCES auth_accounts(id) ON DELETE SET NULL,
			first_time_login BOOLEAN NOT NULL DEFAULT TRUE,
			password_changed BOOLEAN NOT NULL DEFAULT FALSE,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			profile_completed BOOLEAN NOT NULL DEFAULT FALSE,
			registration_completed BOOLEAN NOT NULL DEFAULT FALSE,
			failed_login_count INTEGER NOT NULL DEFAULT 0,
			collector VARCHAR(255)
		)`,

		// Profiles table (1:1 with auth accounts, created lazily on first login)
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			email VARCHAR(255) NOT NULL,
			full_name VARCHAR(255),
			phone VARCHAR(50),
			profile_completed BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Email transitions (placeholder -> personal email state machine)
		`CREATE TABLE IF NOT EXISTS email_transitions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			member_number VARCHAR(10) NOT NULL,
			old_email VARCHAR(255) NOT NULL,
			new_email VARCHAR(255) NOT NULL,
			token VARCHAR(255) NOT NULL UNIQUE,
			expires_at TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			completed_at TIMESTAMP,
			error_message TEXT
		)`,

		// Password reset tokens
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			member_number VARCHAR(10) NOT NULL,
			token VARCHAR(255) NOT NULL UNIQUE,
			expires_at TIMESTAMP NOT NULL,
			used BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Audit log (append-only, never updated or deleted)
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			operation VARCHAR(100) NOT NULL,
			table_name VARCHAR(100),
			record_id VARCHAR(100),
			old_values JSONB,
			new_values JSONB,
			severity VARCHAR(20) NOT NULL DEFAULT 'info',
			actor_id UUID,
			correlation_id UUID NOT NULL,
			metadata JSONB
		)`,

		// Member documents (object storage metadata)
		`CREATE TABLE IF NOT EXISTS member_documents (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			member_number VARCHAR(10) NOT NULL,
			file_name VARCHAR(255) NOT NULL,
			url TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_auth_accounts_email ON auth_accounts(email)`,
		`CREATE INDEX IF NOT EXISTS idx_members_member_number ON members(member_number)`,
		`CREATE INDEX IF NOT EXISTS idx_members_email ON members(email)`,
		`CREATE INDEX IF NOT EXISTS idx_members_auth_user_id ON members(auth_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_email_transitions_member_number ON email_transitions(member_number)`,
		`CREATE INDEX IF NOT EXISTS idx_email_transitions_token ON email_transitions(token)`,
		`CREATE INDEX IF NOT EXISTS idx_email_transitions_created_at ON email_transitions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_token ON password_reset_tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_member_number ON password_reset_tokens(member_number)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires_at ON password_reset_tokens(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_correlation_id ON audit_logs(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_record_id ON audit_logs(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_member_documents_member_number ON member_documents(member_number)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
