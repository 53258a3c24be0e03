// internal/accounts/implementation.go
package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sql.DB
	tokens      *TokenIssuer
	rateLimiter *rate.Limiter
}

// NewService creates a new accounts service instance.
func NewService(es *eventstore.EventStore, db *sql.DB, tokens *TokenIssuer) Service {
	return &service{
		eventStore:  es,
		db:          db,
		tokens:      tokens,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute), 5),
	}
}

// Register creates a new customer profile.
func (s *service) Register(ctx context.Context, email, fullName, password string) (*Profile, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	id := uuid.New()
	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	eventData := ProfileRegisteredEvent{ID: id, Email: email}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		EventType: "ProfileRegistered",
		EventData: jsonData,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "profile", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	profile := &Profile{
		ID:       id,
		Email:    email,
		FullName: fullName,
	}
	credential := &Credential{
		ProfileID:    id,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.insertProfileIntoReadModel(ctx, profile, credential); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return profile, nil
}

func (s *service) insertProfileIntoReadModel(ctx context.Context, profile *Profile, credential *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	profileQuery := `
		INSERT INTO profiles (id, email, full_name, is_admin)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.ExecContext(ctx, profileQuery, profile.ID, profile.Email, profile.FullName, profile.IsAdmin)
	if err != nil {
		return err
	}

	credQuery := `
		INSERT INTO credentials (profile_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, credQuery, credential.ProfileID, credential.PasswordHash, credential.Salt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Login verifies credentials and returns the profile with a signed session token.
func (s *service) Login(ctx context.Context, email, password string) (*Profile, string, error) {
	if !s.rateLimiter.Allow() {
		return nil, "", fmt.Errorf("rate limit exceeded")
	}

	profile, err := s.getProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	credential, err := s.getCredential(ctx, profile.ID)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(profile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return profile, token, nil
}

func (s *service) getProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `
		SELECT id, email, full_name, is_admin,
		       COALESCE(shipping_address, ''), COALESCE(shipping_city, ''),
		       COALESCE(shipping_country, ''), COALESCE(shipping_postal_code, ''),
		       created_at, updated_at
		FROM profiles
		WHERE email = $1
	`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, email))
}

func (s *service) getCredential(ctx context.Context, profileID uuid.UUID) (*Credential, error) {
	query := `
		SELECT profile_id, password_hash, salt
		FROM credentials
		WHERE profile_id = $1
	`
	credential := &Credential{}
	err := s.db.QueryRowContext(ctx, query, profileID).Scan(
		&credential.ProfileID,
		&credential.PasswordHash,
		&credential.Salt,
	)
	if err != nil {
		return nil, err
	}
	return credential, nil
}

// GetProfile retrieves a profile by its ID.
func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, email, full_name, is_admin,
		       COALESCE(shipping_address, ''), COALESCE(shipping_city, ''),
		       COALESCE(shipping_country, ''), COALESCE(shipping_postal_code, ''),
		       created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	profile, err := s.scanProfile(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	return profile, err
}

func (s *service) scanProfile(row *sql.Row) (*Profile, error) {
	profile := &Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.IsAdmin,
		&profile.ShippingAddress,
		&profile.ShippingCity,
		&profile.ShippingCountry,
		&profile.ShippingPostalCode,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile replaces the customer-editable fields, including the default
// shipping address used to prefill checkout.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error {
	if _, err := s.GetProfile(ctx, id); err != nil {
		return err
	}

	eventData := ProfileUpdatedEvent{ID: id}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	events, err := s.eventStore.LoadEvents(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load profile events: %w", err)
	}
	version := events[len(events)-1].Version

	event := eventstore.Event{
		EventType: "ProfileUpdated",
		EventData: jsonData,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "profile", version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE profiles
		SET full_name = $1, shipping_address = $2, shipping_city = $3,
		    shipping_country = $4, shipping_postal_code = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err = s.db.ExecContext(ctx, query,
		update.FullName, update.ShippingAddress, update.ShippingCity,
		update.ShippingCountry, update.ShippingPostalCode, id)
	return err
}

// ListProfiles returns every profile for the admin users table.
func (s *service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	query := `
		SELECT id, email, full_name, is_admin,
		       COALESCE(shipping_address, ''), COALESCE(shipping_city, ''),
		       COALESCE(shipping_country, ''), COALESCE(shipping_postal_code, ''),
		       created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		profile := &Profile{}
		err := rows.Scan(
			&profile.ID, &profile.Email, &profile.FullName, &profile.IsAdmin,
			&profile.ShippingAddress, &profile.ShippingCity,
			&profile.ShippingCountry, &profile.ShippingPostalCode,
			&profile.CreatedAt, &profile.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}
