package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the schema as idempotent DDL statements, executed
// in order at startup.  Foreign keys encode the ownership rules:
// invites and registrations are cascade-deleted with their guardian
// or ninong owner, while a registration's ninong link is nulled when
// the sponsor is removed.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS guardians (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NULL,
		contact_number VARCHAR(20) NOT NULL DEFAULT '',
		address TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_guardians_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS ninongs (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		email_verified_at DATETIME NULL,
		verification_code_hash VARCHAR(255) NULL,
		verification_code_expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ninongs_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS admins (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_admins_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		token_hash CHAR(64) NOT NULL,
		principal_type ENUM('guardian','ninong','admin') NOT NULL,
		principal_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tokens_hash (token_hash),
		KEY idx_tokens_principal (principal_type, principal_id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS ninong_invites (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		ninong_id BIGINT UNSIGNED NOT NULL,
		code VARCHAR(50) NOT NULL,
		usage_limit INT UNSIGNED NULL,
		used_count INT UNSIGNED NOT NULL DEFAULT 0,
		expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_invites_code (code),
		KEY idx_invites_ninong (ninong_id),
		CONSTRAINT fk_invites_ninong FOREIGN KEY (ninong_id)
			REFERENCES ninongs (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS registrations (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		reference_number VARCHAR(30) NOT NULL,
		guardian_id BIGINT UNSIGNED NOT NULL,
		ninong_id BIGINT UNSIGNED NULL,
		inaanak_name VARCHAR(255) NOT NULL,
		inaanak_birthdate DATE NOT NULL,
		relationship VARCHAR(255) NOT NULL,
		live_photo_path VARCHAR(255) NULL,
		video_path VARCHAR(255) NULL,
		qr_code_path VARCHAR(255) NULL,
		status ENUM('pending','approved','released','rejected') NOT NULL DEFAULT 'pending',
		rejection_reason TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_registrations_reference (reference_number),
		KEY idx_registrations_guardian (guardian_id),
		KEY idx_registrations_ninong (ninong_id),
		CONSTRAINT fk_registrations_guardian FOREIGN KEY (guardian_id)
			REFERENCES guardians (id) ON DELETE CASCADE,
		CONSTRAINT fk_registrations_ninong FOREIGN KEY (ninong_id)
			REFERENCES ninongs (id) ON DELETE SET NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS registration_counters (
		day DATE NOT NULL PRIMARY KEY,
		next INT UNSIGNED NOT NULL DEFAULT 0
	) ENGINE=InnoDB`,
}

// Migrate applies the schema.  Every statement is idempotent so the
// function is safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
